package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/callaudit/internal/ingest"
	"github.com/ppiankov/callaudit/internal/model"
)

// ErrDisallowedByRobots is returned when robots.txt forbids fetching a transcript URL
var ErrDisallowedByRobots = errors.New("disallowed by robots.txt")

// StdinSource is the source name for transcripts piped on stdin
const StdinSource = "-"

// maxLocalBytes caps transcripts read from files or stdin
const maxLocalBytes = 16 << 20

// IsURL reports whether src is an http(s) URL
func IsURL(src string) bool {
	u, err := url.Parse(src)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// resolve loads a transcript from a URL, a file, or stdin ("-")
func (p *Pipeline) resolve(ctx context.Context, src string) (model.TranscriptRecord, *model.FetchMeta, error) {
	switch {
	case IsURL(src):
		return p.resolveURL(ctx, src)
	case src == StdinSource:
		rec, err := readLocal(p.stdin, "stdin", "")
		return rec, nil, err
	default:
		f, err := os.Open(src)
		if err != nil {
			return model.TranscriptRecord{}, nil, fmt.Errorf("open transcript: %w", err)
		}
		defer func() { _ = f.Close() }()
		rec, err := readLocal(f, src, filepath.Ext(src))
		return rec, nil, err
	}
}

func (p *Pipeline) resolveURL(ctx context.Context, rawURL string) (model.TranscriptRecord, *model.FetchMeta, error) {
	if p.robots != nil {
		allowed, _, err := p.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return model.TranscriptRecord{}, nil, fmt.Errorf("robots check: %w", err)
		}
		if !allowed {
			return model.TranscriptRecord{}, nil, fmt.Errorf("%w: %s", ErrDisallowedByRobots, rawURL)
		}
	}

	result, err := p.fetcher.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return model.TranscriptRecord{}, nil, fmt.Errorf("fetch: %w", err)
	}

	rec := ingest.FromText(TranscriptText(result.Body, result.Meta.ContentType), result.FinalURL)
	meta := result.Meta
	return rec, &meta, nil
}

// readLocal reads a transcript; ".json" content is treated as a webhook payload
func readLocal(r io.Reader, source, ext string) (model.TranscriptRecord, error) {
	if r == nil {
		return model.TranscriptRecord{}, fmt.Errorf("read %s: no input", source)
	}

	data, err := io.ReadAll(io.LimitReader(r, maxLocalBytes))
	if err != nil {
		return model.TranscriptRecord{}, fmt.Errorf("read %s: %w", source, err)
	}

	if strings.EqualFold(ext, ".json") {
		rec, err := ingest.Normalize(data)
		if err != nil {
			return model.TranscriptRecord{}, fmt.Errorf("%s: %w", source, err)
		}
		rec.Source = source
		return rec, nil
	}

	var text string
	switch strings.ToLower(ext) {
	case ".html", ".htm":
		text = TranscriptText(string(data), "text/html")
	default:
		text = string(data)
	}
	return ingest.FromText(text, source), nil
}
