// Package loader resolves site diary exports from a local path or remote URL
// and decodes them into structured records. Exports arrive in whatever format
// the site's tooling happened to produce, so decoding is auto-detected:
// spreadsheet first, then delimited text as UTF-8, then delimited text as
// Latin-1. The CSV paths skip malformed lines instead of failing; this is a
// known lossy behavior, kept from the original ingestion tooling.
package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"diary-service/internal/models"
)

// LoadError kinds.
const (
	KindFetch             = "fetch"
	KindUnsupportedFormat = "unsupported_format"
)

// LoadError reports a failure to resolve or decode a source. Kind is one of
// KindFetch (the bytes could not be retrieved) or KindUnsupportedFormat
// (every decoder in the chain rejected the content).
type LoadError struct {
	Kind   string
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load %s: %s: %v", e.Source, e.Kind, e.Err)
	}
	return fmt.Sprintf("load %s: %s", e.Source, e.Kind)
}

func (e *LoadError) Unwrap() error { return e.Err }

// decoder tries to turn raw bytes into a table. A failure carries no side
// effects; the caller simply moves on to the next decoder.
type decoder struct {
	name   string
	decode func(data []byte) (*models.Table, error)
}

// Loader resolves and decodes diary exports.
type Loader struct {
	httpClient *http.Client
	decoders   []decoder
	logger     *zap.Logger
}

// New creates a loader with the default decode chain.
func New(logger *zap.Logger) *Loader {
	return &Loader{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		decoders: []decoder{
			{name: "xlsx", decode: decodeXLSX},
			{name: "csv-utf8", decode: decodeCSVUTF8},
			{name: "csv-latin1", decode: decodeCSVLatin1},
		},
		logger: logger,
	}
}

// Load resolves the source (http/https URL or local path) and decodes it.
func (l *Loader) Load(ctx context.Context, source string) (*models.Table, error) {
	data, err := l.resolve(ctx, source)
	if err != nil {
		return nil, err
	}
	return l.Decode(data, source)
}

// Decode runs the decode chain over bytes already in hand (e.g. an uploaded
// file). The first decoder that produces a non-empty table wins; the rest are
// not attempted.
func (l *Loader) Decode(data []byte, source string) (*models.Table, error) {
	for _, d := range l.decoders {
		table, err := d.decode(data)
		if err != nil {
			l.logger.Debug("decoder rejected source",
				zap.String("decoder", d.name),
				zap.String("source", source),
				zap.Error(err))
			continue
		}
		l.logger.Info("source decoded",
			zap.String("decoder", d.name),
			zap.String("source", source),
			zap.Int("rows", len(table.Records)))
		return table, nil
	}
	return nil, &LoadError{Kind: KindUnsupportedFormat, Source: source}
}

func (l *Loader) resolve(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return l.fetch(ctx, source)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, &LoadError{Kind: KindFetch, Source: source, Err: err}
	}
	return data, nil
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &LoadError{Kind: KindFetch, Source: url, Err: err}
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, &LoadError{Kind: KindFetch, Source: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &LoadError{
			Kind:   KindFetch,
			Source: url,
			Err:    fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &LoadError{Kind: KindFetch, Source: url, Err: err}
	}
	return data, nil
}
