package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-gota/gota/dataframe"
)

// ErrSourceNotFound is returned when neither cache nor source exist and
// synthesis is disabled.
var ErrSourceNotFound = errors.New("source dataset not found")

// Origin tells where a loaded frame came from.
type Origin string

const (
	OriginCache     Origin = "cache"
	OriginSource    Origin = "source"
	OriginSynthetic Origin = "synthetic"
)

// ProviderOptions configures dataset resolution.
type ProviderOptions struct {
	SourcePath string
	CachePath  string
	SheetName  string
	// Synthesize generates and persists a dataset when SourcePath is absent.
	Synthesize bool
	Generate   GenerateOptions
}

// Provider resolves the raw dataset for a run.
type Provider struct {
	opt    ProviderOptions
	logger *slog.Logger
}

// NewProvider creates a Provider. A nil logger falls back to slog.Default().
func NewProvider(opt ProviderOptions, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{opt: opt, logger: logger}
}

// Ensure returns the raw frame, preferring the cleaned cache, then the source
// file, then a freshly synthesized dataset which is written to SourcePath.
func (p *Provider) Ensure(ctx context.Context) (dataframe.DataFrame, Origin, error) {
	if err := ctx.Err(); err != nil {
		return dataframe.DataFrame{}, "", err
	}
	if p.opt.CachePath != "" && fileExists(p.opt.CachePath) {
		df, err := ReadFrame(p.opt.CachePath, "")
		if err != nil {
			return dataframe.DataFrame{}, "", fmt.Errorf("load cache: %w", err)
		}
		p.logger.DebugContext(ctx, "dataset loaded", "origin", OriginCache, "path", p.opt.CachePath, "rows", df.Nrow())
		return df, OriginCache, nil
	}
	if fileExists(p.opt.SourcePath) {
		df, err := ReadFrame(p.opt.SourcePath, p.opt.SheetName)
		if err != nil {
			return dataframe.DataFrame{}, "", fmt.Errorf("load source: %w", err)
		}
		p.logger.DebugContext(ctx, "dataset loaded", "origin", OriginSource, "path", p.opt.SourcePath, "rows", df.Nrow())
		return df, OriginSource, nil
	}
	if !p.opt.Synthesize {
		return dataframe.DataFrame{}, "", fmt.Errorf("%w: %s", ErrSourceNotFound, p.opt.SourcePath)
	}
	df := Generate(p.opt.Generate)
	if err := WriteFrame(df, p.opt.SourcePath); err != nil {
		return dataframe.DataFrame{}, "", fmt.Errorf("persist synthetic dataset: %w", err)
	}
	p.logger.InfoContext(ctx, "synthetic dataset written",
		"path", p.opt.SourcePath, "rows", df.Nrow(), "seed", p.opt.Generate.Seed)
	return df, OriginSynthetic, nil
}

// Invalidate removes the cleaned cache so the next Ensure reloads the source.
func (p *Provider) Invalidate() error {
	if p.opt.CachePath == "" {
		return nil
	}
	if err := os.Remove(p.opt.CachePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove cache: %w", err)
	}
	return nil
}

// SourcePath returns the configured source file.
func (p *Provider) SourcePath() string { return p.opt.SourcePath }

// CachePath returns the configured cache file.
func (p *Provider) CachePath() string { return p.opt.CachePath }

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
