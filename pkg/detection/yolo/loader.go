package yolo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/teslashibe/go-objectcam/internal/httpc"
	"github.com/teslashibe/go-objectcam/internal/log"
	"github.com/teslashibe/go-objectcam/pkg/detection"
)

// Loader makes sure the model file is present, then loads it.
type Loader struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

// NewLoader creates a loader for cfg. A nil client uses httpc.Client.
func NewLoader(cfg Config, client *http.Client, logger *slog.Logger) *Loader {
	if client == nil {
		client = httpc.Client
	}
	return &Loader{
		cfg:    cfg,
		client: client,
		logger: log.Or(logger).With("component", "yolo"),
	}
}

// Load fetches the model if needed and returns a ready detector.
func (l *Loader) Load(ctx context.Context) (detection.Detector, error) {
	if err := l.EnsureModel(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	det, err := New(l.cfg)
	if err != nil {
		return nil, err
	}

	l.logger.Info("model loaded",
		"path", l.cfg.ModelPath,
		"backend", det.Backend(),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return det, nil
}

// EnsureModel downloads ModelURL into ModelPath when the file is missing.
func (l *Loader) EnsureModel(ctx context.Context) error {
	_, err := os.Stat(l.cfg.ModelPath)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat model: %w", err)
	}
	if l.cfg.ModelURL == "" {
		return fmt.Errorf("%w: %s", detection.ErrModelNotFound, l.cfg.ModelPath)
	}

	l.logger.Info("downloading model", "url", l.cfg.ModelURL, "path", l.cfg.ModelPath)
	if err := httpc.DownloadFile(ctx, l.client, l.cfg.ModelURL, l.cfg.ModelPath); err != nil {
		return fmt.Errorf("%w: %v", detection.ErrModelNotFound, err)
	}
	return nil
}

var _ detection.Loader = (*Loader)(nil)
