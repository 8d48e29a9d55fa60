package storage

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
)

// Source opens the raw byte stream behind a location.
type Source interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// Opener dispatches a location to the source for its scheme and transparently
// decompresses gzip and zstd streams.
type Opener struct {
	local  Source
	http   Source
	azure  Source
	logger logrus.FieldLogger
}

// Option configures an Opener.
type Option func(*Opener)

// WithHTTP sets the source used for http:// and https:// locations.
func WithHTTP(s Source) Option {
	return func(o *Opener) { o.http = s }
}

// WithAzure enables azblob:// locations.
func WithAzure(s Source) Option {
	return func(o *Opener) { o.azure = s }
}

// WithLogger sets the logger for open diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *Opener) { o.logger = l }
}

// NewOpener returns an Opener that reads local files and, unless replaced
// with WithHTTP, fetches URLs with a default HTTPFetcher.
func NewOpener(opts ...Option) *Opener {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	o := &Opener{local: LocalFiles{}, http: NewHTTPFetcher(), logger: discard}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Open returns the decompressed stream behind location, which is a local
// path, an http(s) URL or an azblob://container/blob URL.
func (o *Opener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	src, err := o.sourceFor(location)
	if err != nil {
		return nil, err
	}

	rc, err := src.Open(ctx, location)
	if err != nil {
		return nil, err
	}

	out, codec, err := Decompress(rc)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("failed to open %s: %w", location, err)
	}
	o.logger.WithFields(logrus.Fields{
		"location":    location,
		"compression": codec,
	}).Debug("source opened")
	return out, nil
}

func (o *Opener) sourceFor(location string) (Source, error) {
	scheme, _, found := strings.Cut(location, "://")
	if !found {
		return o.local, nil
	}
	switch strings.ToLower(scheme) {
	case "file":
		return o.local, nil
	case "http", "https":
		return o.http, nil
	case "azblob":
		if o.azure == nil {
			return nil, fmt.Errorf("azblob source not configured (set AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY)")
		}
		return o.azure, nil
	}
	return nil, fmt.Errorf("unsupported location scheme %q", scheme)
}

// LocalFiles opens paths on the local file system. file:// URLs are accepted.
type LocalFiles struct{}

func (LocalFiles) Open(_ context.Context, location string) (io.ReadCloser, error) {
	path := location
	if strings.HasPrefix(location, "file://") {
		u, err := url.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("invalid file URL: %w", err)
		}
		path = u.Path
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Decompress sniffs rc and wraps it in a gzip or zstd reader when the stream
// starts with the matching magic. It reports the codec used, or "none".
// Closing the result closes rc.
func Decompress(rc io.ReadCloser) (io.ReadCloser, string, error) {
	br := bufio.NewReaderSize(rc, 64*1024)
	head, err := br.Peek(4)
	if err != nil && err != io.EOF {
		return nil, "", err
	}

	switch {
	case bytes.HasPrefix(head, zstdMagic):
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, "", fmt.Errorf("zstd: %w", err)
		}
		return &stackedCloser{Reader: dec, closers: []func() error{
			func() error { dec.Close(); return nil },
			rc.Close,
		}}, "zstd", nil
	case bytes.HasPrefix(head, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, "", fmt.Errorf("gzip: %w", err)
		}
		return &stackedCloser{Reader: zr, closers: []func() error{zr.Close, rc.Close}}, "gzip", nil
	}
	return &stackedCloser{Reader: br, closers: []func() error{rc.Close}}, "none", nil
}

type stackedCloser struct {
	io.Reader
	closers []func() error
}

func (s *stackedCloser) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
