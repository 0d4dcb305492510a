package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sumShahd/sat2uav-rubble-detect/internal/cache"
	"github.com/sumShahd/sat2uav-rubble-detect/internal/logging"
	"github.com/sumShahd/sat2uav-rubble-detect/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the stitching HTTP API",
	Long: `Serve exposes stitching over HTTP.

Endpoints:
  GET  /api/v1/health   liveness, version and cache occupancy
  GET  /api/v1/scenes   scenes found in a tile directory (?dir=...)
  POST /api/v1/stitch   stitch a scene and return the PNG mosaic

Finished mosaics and directory listings are cached, so repeated requests
against an unchanged tile directory are served without re-reading tiles.

Examples:
  rubble serve
  rubble serve --bind 0.0.0.0 --port 3000 --cache-mb 512`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("bind", "b", "localhost", "bind address")
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().Duration("timeout", 60*time.Second, "request timeout")
	serveCmd.Flags().StringSlice("cors-origin", []string{"*"}, "allowed CORS origins")
	serveCmd.Flags().Int("cache-mb", 256, "mosaic cache size in MB")
	serveCmd.Flags().Duration("cache-ttl", 5*time.Minute, "mosaic cache entry lifetime")

	viper.BindPFlag("server.bind", serveCmd.Flags().Lookup("bind"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.timeout", serveCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("server.cors-origin", serveCmd.Flags().Lookup("cors-origin"))
	viper.BindPFlag("server.cache-mb", serveCmd.Flags().Lookup("cache-mb"))
	viper.BindPFlag("server.cache-ttl", serveCmd.Flags().Lookup("cache-ttl"))
}

func runServe(cmd *cobra.Command, args []string) error {
	initLogging()
	defer logging.Sync()
	log := logging.Log

	timeout := viper.GetDuration("server.timeout")
	addr := fmt.Sprintf("%s:%d", viper.GetString("server.bind"), viper.GetInt("server.port"))

	cacheCfg := cache.DefaultConfig()
	cacheCfg.MosaicCacheSizeMB = viper.GetInt("server.cache-mb")
	cacheCfg.MosaicTTL = viper.GetDuration("server.cache-ttl")
	mgr, err := cache.NewManager(cacheCfg)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer mgr.Close()

	router := server.Router(server.Config{
		Version:     version,
		CORSOrigins: viper.GetStringSlice("server.cors-origin"),
		Timeout:     timeout,
		Cache:       mgr,
		Log:         log,
	})

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			log.Error("shutdown error", zap.Error(err))
		}
	}()

	log.Info("server listening", zap.String("addr", addr))
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
