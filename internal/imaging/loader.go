package imaging

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/ironsheep/cbf-tools-mcp/internal/cbf"
)

// Opener opens the byte stream behind a location. *storage.Opener satisfies it.
type Opener interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// ImageCache provides thread-safe caching of decoded CBF streams to avoid
// redundant fetches and decodes.
//
// The cache stores every image section of a stream, keyed by the location
// string it was opened with. Once a stream is loaded, subsequent Load() calls
// for the same location return the cached images without I/O.
//
// # Memory Management
//
// A 2880x2880 frame of 32-bit samples holds about 33 MB. Cached streams
// remain in memory until explicitly removed via Evict() or Clear().
//
// # Concurrent Loads
//
// Concurrent Load() calls for a location that is not cached yet share one
// open and decode; the callers that did not start it wait for its result.
//
// # Example Usage
//
//	cache := imaging.NewImageCache(storage.NewOpener())
//	d, err := cache.Image(ctx, "/data/run1/img_0001.cbf", 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cache.Evict("/data/run1/img_0001.cbf") // Optional: free memory
type ImageCache struct {
	mu       sync.RWMutex
	streams  map[string][]*cbf.Decoded
	inflight map[string]*loadCall
	opener   Opener
	opts     []cbf.Option
}

// loadCall is one open and decode of a location in progress.
type loadCall struct {
	done   chan struct{}
	images []*cbf.Decoded
	err    error
}

// NewImageCache creates an empty cache that opens streams with opener and
// decodes them with opts.
func NewImageCache(opener Opener, opts ...cbf.Option) *ImageCache {
	return &ImageCache{
		streams:  make(map[string][]*cbf.Decoded),
		inflight: make(map[string]*loadCall),
		opener:   opener,
		opts:     opts,
	}
}

// Load retrieves all images of a stream from the cache, or opens and decodes
// the stream when it is not cached.
//
// A stream that fails to decode is not cached; the error names the image
// that failed. Callers waiting on another caller's load receive its result,
// error included, unless their own ctx ends first.
func (c *ImageCache) Load(ctx context.Context, location string) ([]*cbf.Decoded, error) {
	c.mu.RLock()
	if images, ok := c.streams[location]; ok {
		c.mu.RUnlock()
		return images, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	if images, ok := c.streams[location]; ok {
		c.mu.Unlock()
		return images, nil
	}
	if call, ok := c.inflight[location]; ok {
		c.mu.Unlock()
		select {
		case <-call.done:
			return call.images, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &loadCall{
		done: make(chan struct{}),
		err:  fmt.Errorf("failed to decode %s: load aborted", location),
	}
	c.inflight[location] = call
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if call.err == nil {
			c.streams[location] = call.images
		}
		delete(c.inflight, location)
		c.mu.Unlock()
		close(call.done)
	}()

	call.images, call.err = c.decode(ctx, location)
	return call.images, call.err
}

func (c *ImageCache) decode(ctx context.Context, location string) ([]*cbf.Decoded, error) {
	rc, err := c.opener.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	images, err := cbf.NewReader(rc, c.opts...).AllDecoded()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", location, err)
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("failed to decode %s: %w", location, cbf.ErrNoImage)
	}
	return images, nil
}

// Image returns image index of the stream at location.
func (c *ImageCache) Image(ctx context.Context, location string, index int) (*cbf.Decoded, error) {
	images, err := c.Load(ctx, location)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(images) {
		return nil, fmt.Errorf("image index %d out of range: %s holds %d image(s)", index, location, len(images))
	}
	return images[index], nil
}

// Put stores already decoded images under location.
func (c *ImageCache) Put(location string, images []*cbf.Decoded) {
	c.mu.Lock()
	c.streams[location] = images
	c.mu.Unlock()
}

// Clear removes all streams from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.streams = make(map[string][]*cbf.Decoded)
	c.mu.Unlock()
}

// Evict removes one stream from the cache. The next Load() for location
// reads it again.
func (c *ImageCache) Evict(location string) {
	c.mu.Lock()
	delete(c.streams, location)
	c.mu.Unlock()
}

// ImageInfo summarises one decoded image.
type ImageInfo struct {
	Location   string `json:"location"`
	Index      int    `json:"index"`
	ImageCount int    `json:"image_count"`

	Width  int `json:"width"`
	Height int `json:"height"`

	// PixelKind is the in-memory sample type, e.g. "i32".
	PixelKind    cbf.Kind        `json:"pixel_kind"`
	ElementType  cbf.ElementType `json:"element_type"`
	ElementCount int             `json:"element_count"`
	Compression  string          `json:"compression"`

	// PayloadBytes is the compressed size actually consumed.
	PayloadBytes int64 `json:"payload_bytes"`

	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// LoadImageInfo loads the stream at location into the cache and describes
// image index.
func LoadImageInfo(ctx context.Context, cache *ImageCache, location string, index int) (*ImageInfo, error) {
	images, err := cache.Load(ctx, location)
	if err != nil {
		return nil, err
	}
	d, err := cache.Image(ctx, location, index)
	if err != nil {
		return nil, err
	}

	compression := "none"
	if conv := d.Metadata.ContentType.Conversion; conv != nil {
		compression = conv.Kind.String()
	}
	min, max, _ := d.Image.MinMax()

	return &ImageInfo{
		Location:     location,
		Index:        index,
		ImageCount:   len(images),
		Width:        d.Image.Width,
		Height:       d.Image.Height,
		PixelKind:    d.Image.Kind(),
		ElementType:  d.Metadata.ElementType,
		ElementCount: d.Metadata.ElementCount,
		Compression:  compression,
		PayloadBytes: d.PayloadBytes,
		Min:          min,
		Max:          max,
	}, nil
}

// HeaderField is one raw MIME header field.
type HeaderField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// HeadersResult is the header block of an image, raw and parsed.
type HeadersResult struct {
	Fields   []HeaderField `json:"fields"`
	Metadata *cbf.Metadata `json:"metadata"`
}

// ImageHeaders returns the header fields of image index in wire order
// together with their typed form.
func ImageHeaders(ctx context.Context, cache *ImageCache, location string, index int) (*HeadersResult, error) {
	d, err := cache.Image(ctx, location, index)
	if err != nil {
		return nil, err
	}

	fields := make([]HeaderField, 0, d.Headers.Len())
	for _, name := range d.Headers.Names() {
		value, _ := d.Headers.Get(name)
		fields = append(fields, HeaderField{Name: name, Value: value})
	}
	return &HeadersResult{Fields: fields, Metadata: d.Metadata}, nil
}

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GetDimensions returns the dimensions of image index.
func GetDimensions(ctx context.Context, cache *ImageCache, location string, index int) (*DimensionsResult, error) {
	d, err := cache.Image(ctx, location, index)
	if err != nil {
		return nil, err
	}
	return &DimensionsResult{Width: d.Image.Width, Height: d.Image.Height}, nil
}
