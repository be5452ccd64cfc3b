// Package batch extracts values from many XML files at once.
package batch

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	xsXml "github.com/BLAZED-sh/xmlvalues/pkg/xml"
)

// StdinPath names standard input in a list of paths.
const StdinPath = "-"

// FileResult holds the values of one file, or the error that stopped it.
type FileResult struct {
	Path   string
	Values []string
	Err    error
}

// Extractor reads files and extracts their values on a bounded worker pool.
type Extractor struct {
	workers int
	stdin   io.Reader
	logger  zerolog.Logger
}

func NewExtractor(workers int, stdin io.Reader, logger zerolog.Logger) *Extractor {
	if workers <= 0 {
		workers = 1
	}
	return &Extractor{
		workers: workers,
		stdin:   stdin,
		logger:  logger.With().Str("component", "batch").Logger(),
	}
}

// ExtractFiles returns one result per path, in the order of paths. Files not
// started before ctx is done report the context error.
func (e *Extractor) ExtractFiles(ctx context.Context, paths []string) ([]FileResult, error) {
	results := make([]FileResult, len(paths))

	pool, err := ants.NewPool(e.workers)
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, path := range paths {
		results[i].Path = path

		// Stdin can only be read once and not concurrently with itself
		if path == StdinPath {
			results[i].Values, results[i].Err = e.extractReader(ctx, e.stdin)
			continue
		}

		wg.Add(1)
		i, path := i, path
		err := pool.Submit(func() {
			defer wg.Done()
			results[i].Values, results[i].Err = e.extractFile(ctx, path)
		})
		if err != nil {
			wg.Done()
			results[i].Err = err
		}
	}
	wg.Wait()

	return results, nil
}

func (e *Extractor) extractFile(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	values, err := xsXml.ExtractValues(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	e.logger.Debug().Str("path", path).Int("size", len(data)).Int("values", len(values)).Msg("Extracted file")
	return values, nil
}

func (e *Extractor) extractReader(ctx context.Context, r io.Reader) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("%s: no standard input", StdinPath)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	values, err := xsXml.ExtractValues(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StdinPath, err)
	}
	return values, nil
}
