package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"time"
)

// SpotDL wraps the spotdl command line tool, which downloads straight from a
// catalog track URL.
type SpotDL struct {
	path    string
	timeout time.Duration
	runner  Runner
}

// NewSpotDL creates a spotdl wrapper bounded by timeout.
func NewSpotDL(path string, timeout time.Duration, runner Runner) *SpotDL {
	if path == "" {
		path = "spotdl"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &SpotDL{path: path, timeout: timeout, runner: runner}
}

// Fetch downloads trackURL into dir, named "{artist} - {title}".
func (s *SpotDL) Fetch(ctx context.Context, trackURL, dir string) error {
	_, err := s.runner.Run(ctx, s.timeout, s.path,
		"--output", filepath.Join(dir, "{artist} - {title}.{output-ext}"),
		"download", trackURL,
	)
	if err != nil {
		return fmt.Errorf("spotdl %s: %w", trackURL, err)
	}
	return nil
}
