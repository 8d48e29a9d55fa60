package cbf

import (
	"fmt"
	"math"
)

// Number is the closed set of pixel representations an Image can hold.
type Number interface {
	uint8 | int8 | uint16 | int16 | uint32 | int32 | float32 | uint64 | int64 | float64
}

// Integer is the subset of Number the byte-offset codec produces.
type Integer interface {
	uint8 | int8 | uint16 | int16 | uint32 | int32 | uint64 | int64
}

// Kind identifies one of the ten pixel representations.
type Kind uint8

const (
	KindU8 Kind = iota
	KindI8
	KindU16
	KindI16
	KindU32
	KindI32
	KindF32
	KindU64
	KindI64
	KindF64
)

var kindNames = [...]string{"u8", "i8", "u16", "i16", "u32", "i32", "f32", "u64", "i64", "f64"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(text []byte) error {
	i, ok := lookup(kindNames[:], string(text))
	if !ok {
		return fmt.Errorf("unknown pixel kind %q", text)
	}
	*k = Kind(i)
	return nil
}

// IsFloat reports whether k is a floating point representation.
func (k Kind) IsFloat() bool {
	return k == KindF32 || k == KindF64
}

// Range returns the smallest and largest value representable by k.
func (k Kind) Range() (min, max float64) {
	switch k {
	case KindU8:
		return 0, math.MaxUint8
	case KindI8:
		return math.MinInt8, math.MaxInt8
	case KindU16:
		return 0, math.MaxUint16
	case KindI16:
		return math.MinInt16, math.MaxInt16
	case KindU32:
		return 0, math.MaxUint32
	case KindI32:
		return math.MinInt32, math.MaxInt32
	case KindF32:
		return -math.MaxFloat32, math.MaxFloat32
	case KindU64:
		return 0, math.MaxUint64
	case KindI64:
		return math.MinInt64, math.MaxInt64
	default:
		return -math.MaxFloat64, math.MaxFloat64
	}
}

// KindOf returns the Kind for the type parameter P.
func KindOf[P Number]() Kind {
	var zero P
	switch any(zero).(type) {
	case uint8:
		return KindU8
	case int8:
		return KindI8
	case uint16:
		return KindU16
	case int16:
		return KindI16
	case uint32:
		return KindU32
	case int32:
		return KindI32
	case float32:
		return KindF32
	case uint64:
		return KindU64
	case int64:
		return KindI64
	default:
		return KindF64
	}
}

// Pixels is a flat row-major sample buffer. The only implementations are the
// ten Buffer instantiations, so a type switch over Buffer[uint8] ...
// Buffer[float64] is exhaustive.
type Pixels interface {
	Kind() Kind
	Len() int
	// Float64 returns sample i widened to float64.
	Float64(i int) float64
}

// Buffer is a typed sample buffer.
type Buffer[P Number] []P

func (b Buffer[P]) Kind() Kind            { return KindOf[P]() }
func (b Buffer[P]) Len() int              { return len(b) }
func (b Buffer[P]) Float64(i int) float64 { return float64(b[i]) }

// Image is a decoded detector frame: Width samples per row, Height rows.
//
// Pixels.Len() is expected to equal Width*Height but this is not enforced;
// lookups outside the buffer report no value.
type Image struct {
	Width  int
	Height int
	Pixels Pixels
}

// NewImage wraps a typed sample slice.
func NewImage[P Number](width, height int, pix []P) *Image {
	return &Image{Width: width, Height: height, Pixels: Buffer[P](pix)}
}

// Kind returns the pixel representation of the image.
func (img *Image) Kind() Kind {
	return img.Pixels.Kind()
}

// Len returns the number of samples in the buffer.
func (img *Image) Len() int {
	return img.Pixels.Len()
}

// Float64At returns the sample at c widened to float64.
func (img *Image) Float64At(c Coordinate) (float64, bool) {
	i, ok := c.Index(img.Width, img.Height)
	if !ok || i >= img.Pixels.Len() {
		return 0, false
	}
	return img.Pixels.Float64(i), true
}

// MinMax returns the smallest and largest sample. ok is false for an empty
// buffer. NaN samples are ignored.
func (img *Image) MinMax() (min, max float64, ok bool) {
	n := img.Pixels.Len()
	for i := 0; i < n; i++ {
		v := img.Pixels.Float64(i)
		if math.IsNaN(v) {
			continue
		}
		if !ok {
			min, max, ok = v, v, true
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max, ok
}

// Plane is a typed view of an Image.
type Plane[P Number] struct {
	Width  int
	Height int
	Pix    []P
}

// PlaneOf returns the typed view of img when its pixels are of type P.
func PlaneOf[P Number](img *Image) (*Plane[P], bool) {
	buf, ok := img.Pixels.(Buffer[P])
	if !ok {
		return nil, false
	}
	return &Plane[P]{Width: img.Width, Height: img.Height, Pix: buf}, true
}

// At returns the sample at c, or false when c falls outside the image.
func (p *Plane[P]) At(c Coordinate) (P, bool) {
	i, ok := c.Index(p.Width, p.Height)
	if !ok || i >= len(p.Pix) {
		var zero P
		return zero, false
	}
	return p.Pix[i], true
}

// Coordinate maps a position to a linear buffer index.
type Coordinate interface {
	Index(width, height int) (int, bool)
}

// Linear is a plain row-major index.
type Linear int

// Index reports i when it lies within width*height samples.
func (i Linear) Index(width, height int) (int, bool) {
	if i < 0 || int(i) >= width*height {
		return 0, false
	}
	return int(i), true
}

// Centered is a signed Cartesian position relative to the image centre
// (width/2, height/2), x to the right and y downward in buffer order.
type Centered struct {
	X int
	Y int
}

// Index re-centres c and reports its linear index when both axes land
// inside the image.
func (c Centered) Index(width, height int) (int, bool) {
	x := c.X + width/2
	y := c.Y + height/2
	if x < 0 || y < 0 || x >= width || y >= height {
		return 0, false
	}
	return Linear(y*width + x).Index(width, height)
}
