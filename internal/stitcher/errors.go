package stitcher

import (
	"errors"
	"fmt"
)

// ErrNoTiles reports that nothing in the scanned directory belonged to the
// requested scene. Callers usually treat it as a warning, not a failure.
var ErrNoTiles = errors.New("no tiles found for scene")

// ErrNoBlocks reports an empty block set handed to AssembleMosaic.
var ErrNoBlocks = errors.New("no blocks to assemble")

// DecodeError wraps a file that matched the tile naming convention but
// could not be decoded. It aborts the whole run; no partial mosaic is
// written.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode tile %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
