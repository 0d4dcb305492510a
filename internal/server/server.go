// Package server exposes the stitching core over HTTP: list the scenes
// in a tile directory, stitch one into a mosaic, report health. The core
// is stateless, so concurrent requests are safe; the server owns the
// caching that keeps repeated requests cheap.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/sumShahd/sat2uav-rubble-detect/internal/cache"
	"github.com/sumShahd/sat2uav-rubble-detect/internal/stitcher"
	"github.com/sumShahd/sat2uav-rubble-detect/pkg/raster"
)

// Config wires the server's collaborators.
type Config struct {
	Version     string
	CORSOrigins []string
	Timeout     time.Duration
	Cache       *cache.Manager
	Log         *zap.Logger
}

// Server handles the stitching API.
type Server struct {
	startTime time.Time
	version   string
	cache     *cache.Manager
	log       *zap.Logger
}

// New creates a server from cfg. A nil logger is replaced by a no-op
// one; the cache is optional and nil disables caching.
func New(cfg Config) *Server {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		startTime: time.Now(),
		version:   cfg.Version,
		cache:     cfg.Cache,
		log:       log,
	}
}

// Router builds the chi router with the full middleware stack and all
// API routes mounted under /api/v1.
func Router(cfg Config) *chi.Mux {
	s := New(cfg)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.GetHealth)
		r.Get("/scenes", s.ListScenes)
		r.Post("/stitch", s.CreateMosaic)
	})

	return r
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status        string         `json:"status"`
	Version       string         `json:"version"`
	UptimeSeconds int            `json:"uptime_seconds"`
	Cache         map[string]int `json:"cache,omitempty"`
}

// GetHealth reports liveness, version and cache occupancy.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:        "healthy",
		Version:       s.version,
		UptimeSeconds: int(time.Since(s.startTime).Seconds()),
	}
	if s.cache != nil {
		resp.Cache = s.cache.Stats()
	}
	writeJSON(w, http.StatusOK, resp)
}

// ScenesResponse lists what a tile directory contains.
type ScenesResponse struct {
	Dir    string               `json:"dir"`
	Scenes []stitcher.SceneInfo `json:"scenes"`
}

// ListScenes scans the directory named by the dir query parameter and
// returns per-scene tile and block counts. Listings are LRU-cached per
// directory.
func (s *Server) ListScenes(w http.ResponseWriter, r *http.Request) {
	var dir string
	if err := runtime.BindQueryParameter("form", true, true, "dir", r.URL.Query(), &dir); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "query parameter dir is required")
		return
	}

	if s.cache != nil {
		if scenes, ok := s.cache.GetScenes(dir); ok {
			writeJSON(w, http.StatusOK, ScenesResponse{Dir: dir, Scenes: scenes})
			return
		}
	}

	scenes, err := stitcher.ListScenes(dir)
	if err != nil {
		s.log.Warn("scene listing failed", zap.String("dir", dir), zap.Error(err))
		s.writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	if s.cache != nil {
		s.cache.SetScenes(dir, scenes)
	}
	writeJSON(w, http.StatusOK, ScenesResponse{Dir: dir, Scenes: scenes})
}

// StitchRequest is the /stitch body. Optional fields use pointers so
// absent and zero are distinguishable; absent fields take the same
// defaults as the CLI.
type StitchRequest struct {
	Dir         string `json:"dir"`
	Scene       *int   `json:"scene"`
	TileSize    *int   `json:"tile_size,omitempty"`
	GridSize    *int   `json:"grid_size,omitempty"`
	SubBase     *int   `json:"sub_base,omitempty"`
	CompactGaps *bool  `json:"compact_gaps,omitempty"`
	StrideX     *int   `json:"stride_x,omitempty"`
	StrideY     *int   `json:"stride_y,omitempty"`
}

// FieldError locates one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error            string       `json:"error"`
	Message          string       `json:"message"`
	RequestID        string       `json:"request_id,omitempty"`
	ValidationErrors []FieldError `json:"validation_errors,omitempty"`
}

// CreateMosaic stitches the requested scene and responds with the
// encoded PNG. Results are cached by the full request geometry.
func (s *Server) CreateMosaic(w http.ResponseWriter, r *http.Request) {
	var req StitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "INVALID_JSON", "invalid JSON in request body")
		return
	}

	if fieldErrs := validateStitchRequest(&req); len(fieldErrs) > 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "VALIDATION_ERROR",
			Message:          "invalid stitch request",
			RequestID:        middleware.GetReqID(r.Context()),
			ValidationErrors: fieldErrs,
		})
		return
	}

	opts := optionsFromRequest(&req)
	key := cache.MosaicKey(req.Dir, *req.Scene, opts)

	if s.cache != nil {
		if data, ok := s.cache.GetMosaic(key); ok {
			writePNG(w, r, data)
			return
		}
	}

	result, err := stitcher.Stitch(req.Dir, *req.Scene, opts)
	if err != nil {
		s.handleStitchError(w, r, err)
		return
	}

	data, err := raster.EncodePNG(result.Image)
	if err != nil {
		s.log.Error("mosaic encoding failed", zap.Error(err))
		s.writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to encode mosaic")
		return
	}

	if s.cache != nil {
		if err := s.cache.SetMosaic(key, data); err != nil {
			s.log.Warn("mosaic cache write failed", zap.Error(err))
		}
	}

	s.log.Info("mosaic stitched",
		zap.String("dir", req.Dir),
		zap.Int("scene", *req.Scene),
		zap.Int("tiles", result.Tiles),
		zap.Int("blocks", result.Blocks),
		zap.Int("width", result.Width),
		zap.Int("height", result.Height))

	writePNG(w, r, data)
}

// validateStitchRequest checks every field and reports all problems at
// once instead of stopping at the first.
func validateStitchRequest(req *StitchRequest) []FieldError {
	var errs []FieldError
	if req.Dir == "" {
		errs = append(errs, FieldError{Field: "dir", Message: "tile directory is required"})
	}
	if req.Scene == nil {
		errs = append(errs, FieldError{Field: "scene", Message: "scene id is required"})
	} else if *req.Scene < 0 {
		errs = append(errs, FieldError{Field: "scene", Message: "scene id must be non-negative"})
	}
	if req.TileSize != nil && *req.TileSize <= 0 {
		errs = append(errs, FieldError{Field: "tile_size", Message: "tile size must be positive"})
	}
	if req.GridSize != nil && *req.GridSize <= 0 {
		errs = append(errs, FieldError{Field: "grid_size", Message: "grid size must be positive"})
	}
	if req.SubBase != nil && *req.SubBase < 0 {
		errs = append(errs, FieldError{Field: "sub_base", Message: "sub base must be non-negative"})
	}
	if req.StrideX != nil && *req.StrideX <= 0 {
		errs = append(errs, FieldError{Field: "stride_x", Message: "stride must be positive"})
	}
	if req.StrideY != nil && *req.StrideY <= 0 {
		errs = append(errs, FieldError{Field: "stride_y", Message: "stride must be positive"})
	}
	return errs
}

// optionsFromRequest applies the CLI defaults to absent fields.
func optionsFromRequest(req *StitchRequest) stitcher.Options {
	opts := stitcher.Options{
		SubBase:     stitcher.DefaultSubBase,
		CompactGaps: true,
	}
	if req.TileSize != nil {
		opts.TileSize = *req.TileSize
	}
	if req.GridSize != nil {
		opts.GridSize = *req.GridSize
	}
	if req.SubBase != nil {
		opts.SubBase = *req.SubBase
	}
	if req.CompactGaps != nil {
		opts.CompactGaps = *req.CompactGaps
	}
	if req.StrideX != nil {
		opts.StrideX = *req.StrideX
	}
	if req.StrideY != nil {
		opts.StrideY = *req.StrideY
	}
	return opts.Normalized()
}

// handleStitchError maps core errors onto stable API error codes.
func (s *Server) handleStitchError(w http.ResponseWriter, r *http.Request, err error) {
	var decodeErr *stitcher.DecodeError
	switch {
	case errors.Is(err, stitcher.ErrNoTiles), errors.Is(err, stitcher.ErrNoBlocks):
		s.writeError(w, r, http.StatusNotFound, "SCENE_NOT_FOUND", err.Error())
	case errors.As(err, &decodeErr):
		s.log.Warn("tile decode failed", zap.String("path", decodeErr.Path), zap.Error(decodeErr.Err))
		s.writeError(w, r, http.StatusBadGateway, "TILE_DECODE_ERROR", err.Error())
	default:
		s.log.Error("stitching failed", zap.Error(err))
		s.writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:     code,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writePNG(w http.ResponseWriter, r *http.Request, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("X-Request-ID", middleware.GetReqID(r.Context()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
