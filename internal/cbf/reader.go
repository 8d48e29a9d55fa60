package cbf

import (
	"bufio"
	"crypto/md5"
	"encoding/base64"
	"errors"
	"fmt"
	"hash"
	"io"

	"github.com/sirupsen/logrus"
)

// Option configures a Reader.
type Option func(*options)

type options struct {
	logger       logrus.FieldLogger
	verifyDigest bool
}

func defaultOptions() *options {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &options{logger: l}
}

// WithLogger sets the logger used for decode diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithDigestVerification makes the reader compare the payload against its
// Content-MD5 field, when the field is present.
func WithDigestVerification(verify bool) Option {
	return func(o *options) {
		o.verifyDigest = verify
	}
}

// Decoded is an image together with the header block it was decoded from.
type Decoded struct {
	Image    *Image
	Metadata *Metadata
	Headers  *Headers
	// PayloadBytes is the number of compressed bytes consumed after the magic.
	PayloadBytes int64
}

// Reader decodes consecutive binary image sections from a stream.
type Reader struct {
	r     *bufio.Reader
	opts  *options
	index int
}

// NewReader returns a Reader over r. r is buffered unless it already is a
// *bufio.Reader.
func NewReader(r io.Reader, opts ...Option) *Reader {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReaderSize(r, 64*1024)
	}
	return &Reader{r: br, opts: o}
}

// Next decodes the next image section. It returns ErrNoImage when the stream
// ends before another start sentinel.
func (r *Reader) Next() (*Image, error) {
	d, err := r.NextDecoded()
	if err != nil {
		return nil, err
	}
	return d.Image, nil
}

// NextDecoded is Next that also returns the parsed header block.
func (r *Reader) NextDecoded() (*Decoded, error) {
	log := r.opts.logger.WithField("section", r.index)

	found, err := scanTo(r.r, StartSentinel)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNoImage
	}
	log.Debug("binary section start found")

	headers, err := ReadHeaders(r.r)
	if err != nil {
		return nil, err
	}
	md, err := ParseMetadata(headers)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"element_type":  md.ElementType.String(),
		"element_count": md.ElementCount,
		"size":          md.Size,
	}).Debug("metadata parsed")

	if err := checkMagic(r.r); err != nil {
		return nil, err
	}
	if err := checkSupported(md); err != nil {
		return nil, err
	}

	var (
		src    io.Reader = r.r
		hasher *hashingReader
	)
	if r.opts.verifyDigest && md.MD5Digest != nil {
		hasher = &hashingReader{r: r.r, h: md5.New()}
		src = hasher
	}

	pixels, consumed, err := decodePixels(src, md)
	if err != nil {
		return nil, err
	}
	if consumed != int64(md.Size) {
		log.WithFields(logrus.Fields{
			"declared": md.Size,
			"consumed": consumed,
		}).Warn("payload size differs from X-Binary-Size")
	}
	if hasher != nil {
		got := base64.StdEncoding.EncodeToString(hasher.h.Sum(nil))
		if got != *md.MD5Digest {
			return nil, fmt.Errorf("%w: header %s, payload %s", ErrDigestMismatch, *md.MD5Digest, got)
		}
	}

	found, err = scanTo(r.r, EndSentinel)
	if err != nil {
		return nil, err
	}
	if !found {
		log.Warn("binary section end marker not found before end of stream")
	}

	if md.Width == nil || md.Height == nil {
		return nil, ErrMissingDimension
	}

	r.index++
	return &Decoded{
		Image:        &Image{Width: *md.Width, Height: *md.Height, Pixels: pixels},
		Metadata:     md,
		Headers:      headers,
		PayloadBytes: consumed,
	}, nil
}

// All decodes every remaining section. Any error other than the clean end
// of stream discards the images decoded so far.
func (r *Reader) All() ([]*Image, error) {
	var images []*Image
	for {
		img, err := r.Next()
		if errors.Is(err, ErrNoImage) {
			return images, nil
		}
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", len(images), err)
		}
		images = append(images, img)
	}
}

// AllDecoded is All keeping header blocks.
func (r *Reader) AllDecoded() ([]*Decoded, error) {
	var out []*Decoded
	for {
		d, err := r.NextDecoded()
		if errors.Is(err, ErrNoImage) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", len(out), err)
		}
		out = append(out, d)
	}
}

// ReadImage decodes exactly the next image section from r.
func ReadImage(r *bufio.Reader, opts ...Option) (*Image, error) {
	return NewReader(r, opts...).Next()
}

// ReadImageWithMetadata is ReadImage keeping the typed and raw header block.
func ReadImageWithMetadata(r *bufio.Reader, opts ...Option) (*Decoded, error) {
	return NewReader(r, opts...).NextDecoded()
}

// ReadAllImages decodes all image sections until the stream ends cleanly.
func ReadAllImages(r io.Reader, opts ...Option) ([]*Image, error) {
	return NewReader(r, opts...).All()
}

func checkSupported(md *Metadata) error {
	if md.ByteOrder != LittleEndian {
		return ErrUnsupportedByteOrder
	}
	if md.ContentType.MimeType != "application" || md.ContentType.Subtype != "octet-stream" {
		return ErrUnsupportedContentType
	}
	if md.ContentTransferEncoding.Encoding != EncodingBinary {
		return ErrUnsupportedEncoding
	}
	if md.ContentType.Conversion == nil || md.ContentType.Conversion.Kind != ConversionByteOffset {
		return ErrUnsupportedCompression
	}
	return nil
}

func decodePixels(r io.Reader, md *Metadata) (Pixels, int64, error) {
	switch md.ElementType {
	case Unsigned8BitInteger:
		return decodeAs[uint8](r, md.ElementCount)
	case Signed8BitInteger:
		return decodeAs[int8](r, md.ElementCount)
	case Unsigned16BitInteger:
		return decodeAs[uint16](r, md.ElementCount)
	case Signed16BitInteger:
		return decodeAs[int16](r, md.ElementCount)
	case Unsigned32BitInteger:
		return decodeAs[uint32](r, md.ElementCount)
	case Signed32BitInteger:
		return decodeAs[int32](r, md.ElementCount)
	default:
		return nil, 0, fmt.Errorf("%w: %s", ErrUnsupportedPixelFormat, md.ElementType)
	}
}

// maxInitialSamples caps the up-front allocation; the element count comes
// from the header and is not trusted until the payload backs it.
const maxInitialSamples = 1 << 20

func decodeAs[P Integer](r io.Reader, count int) (Pixels, int64, error) {
	if count < 0 {
		return nil, 0, invalidField(FieldElementCount, fmt.Sprint(count))
	}
	pix := make([]P, 0, min(count, maxInitialSamples))
	dec := NewByteOffsetDecoder[P](r)
	for i := 0; i < count; i++ {
		v, err := dec.Next()
		if err != nil {
			return nil, dec.BytesRead(), fmt.Errorf("failed to decode payload: byte offset sample %d: %w", i, err)
		}
		pix = append(pix, v)
	}
	return Buffer[P](pix), dec.BytesRead(), nil
}

// hashingReader feeds every byte handed to the decoder into h.
type hashingReader struct {
	r   *bufio.Reader
	h   hash.Hash
	one [1]byte
}

func (hr *hashingReader) Read(p []byte) (int, error) {
	n, err := hr.r.Read(p)
	hr.h.Write(p[:n])
	return n, err
}

func (hr *hashingReader) ReadByte() (byte, error) {
	b, err := hr.r.ReadByte()
	if err != nil {
		return 0, err
	}
	hr.one[0] = b
	hr.h.Write(hr.one[:])
	return b, nil
}
