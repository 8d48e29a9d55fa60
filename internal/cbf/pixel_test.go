package cbf

import (
	"math"
	"testing"
)

func TestLinearIndex(t *testing.T) {
	tests := []struct {
		i      Linear
		w, h   int
		want   int
		wantOK bool
	}{
		{0, 4, 3, 0, true},
		{11, 4, 3, 11, true},
		{12, 4, 3, 0, false},
		{-1, 4, 3, 0, false},
		{0, 0, 0, 0, false},
	}
	for _, tt := range tests {
		got, ok := tt.i.Index(tt.w, tt.h)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("Linear(%d).Index(%d, %d): got %d, %v; want %d, %v", tt.i, tt.w, tt.h, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestCenteredIndex(t *testing.T) {
	tests := []struct {
		name   string
		c      Centered
		w, h   int
		want   int
		wantOK bool
	}{
		{"centre of even image", Centered{0, 0}, 4, 4, 2*4 + 2, true},
		{"centre of odd image", Centered{0, 0}, 3, 3, 4, true},
		{"top left", Centered{-2, -2}, 4, 4, 0, true},
		{"bottom right", Centered{1, 1}, 4, 4, 15, true},
		{"past right edge", Centered{2, 0}, 4, 4, 0, false},
		{"above top edge", Centered{0, -3}, 4, 4, 0, false},
		{"x would wrap into next row", Centered{3, -1}, 4, 4, 0, false},
		{"non-square", Centered{-3, 1}, 6, 3, 12, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.c.Index(tt.w, tt.h)
			if ok != tt.wantOK {
				t.Fatalf("ok: got %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("index: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPlaneOf(t *testing.T) {
	img := NewImage(2, 2, []uint16{1, 2, 3, 4})

	if _, ok := PlaneOf[int32](img); ok {
		t.Error("PlaneOf[int32] should not match a u16 image")
	}
	plane, ok := PlaneOf[uint16](img)
	if !ok {
		t.Fatal("PlaneOf[uint16] should match")
	}
	if v, ok := plane.At(Centered{0, 0}); !ok || v != 4 {
		t.Errorf("At(centre): got %d, %v; want 4, true", v, ok)
	}
	if v, ok := plane.At(Linear(1)); !ok || v != 2 {
		t.Errorf("At(1): got %d, %v; want 2, true", v, ok)
	}
	if _, ok := plane.At(Linear(4)); ok {
		t.Error("At(4) should be out of range")
	}
}

func TestImage_ShortBuffer(t *testing.T) {
	// Declared dimensions larger than the buffer are not rejected; lookups
	// past the end simply report no value.
	img := NewImage(4, 4, []int32{7, 8})
	if v, ok := img.Float64At(Linear(1)); !ok || v != 8 {
		t.Errorf("Float64At(1): got %v, %v", v, ok)
	}
	if _, ok := img.Float64At(Linear(5)); ok {
		t.Error("Float64At(5) should report no value")
	}
}

func TestImage_KindAndMinMax(t *testing.T) {
	tests := []struct {
		name    string
		img     *Image
		kind    Kind
		min     float64
		max     float64
		wantAny bool
	}{
		{"u8", NewImage(2, 1, []uint8{3, 250}), KindU8, 3, 250, true},
		{"i32", NewImage(3, 1, []int32{-5, 0, 12}), KindI32, -5, 12, true},
		{"f32 with NaN", NewImage(3, 1, []float32{float32(math.NaN()), 1.5, -2}), KindF32, -2, 1.5, true},
		{"empty", NewImage(0, 0, []float64{}), KindF64, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.img.Kind() != tt.kind {
				t.Errorf("Kind: got %s, want %s", tt.img.Kind(), tt.kind)
			}
			min, max, ok := tt.img.MinMax()
			if ok != tt.wantAny {
				t.Fatalf("ok: got %v, want %v", ok, tt.wantAny)
			}
			if ok && (min != tt.min || max != tt.max) {
				t.Errorf("MinMax: got %v..%v, want %v..%v", min, max, tt.min, tt.max)
			}
		})
	}
}

func TestKind(t *testing.T) {
	if KindOf[int64]() != KindI64 || KindOf[float32]() != KindF32 || KindOf[uint8]() != KindU8 {
		t.Error("KindOf returned the wrong kind")
	}
	if !KindF64.IsFloat() || KindU64.IsFloat() {
		t.Error("IsFloat misclassified")
	}
	if lo, hi := KindI16.Range(); lo != math.MinInt16 || hi != math.MaxInt16 {
		t.Errorf("I16 range: got %v..%v", lo, hi)
	}
	if b, _ := KindU32.MarshalText(); string(b) != "u32" {
		t.Errorf("MarshalText: got %s", b)
	}
}

func TestKind_TextRoundTrip(t *testing.T) {
	for k := KindU8; k <= KindF64; k++ {
		text, err := k.MarshalText()
		if err != nil {
			t.Fatalf("%s: MarshalText failed: %v", k, err)
		}
		var got Kind
		if err := got.UnmarshalText(text); err != nil {
			t.Fatalf("%s: UnmarshalText failed: %v", k, err)
		}
		if got != k {
			t.Errorf("got %s, want %s", got, k)
		}
	}

	var k Kind
	if err := k.UnmarshalText([]byte("u128")); err == nil {
		t.Error("expected an error for an unknown kind")
	}
}
