package analysis

import (
	"testing"

	"github.com/ironsheep/cbf-tools-mcp/internal/cbf"
)

func meanOf[P cbf.Number](values ...P) P {
	var a Average[P]
	for _, v := range values {
		a.Add(v)
	}
	return a.Mean()
}

func TestAverage_Simple(t *testing.T) {
	tests := []struct {
		name string
		got  float64
	}{
		{"u8", float64(meanOf[uint8](1, 2, 3, 4, 5))},
		{"i8", float64(meanOf[int8](1, 2, 3, 4, 5))},
		{"u16", float64(meanOf[uint16](1, 2, 3, 4, 5))},
		{"i16", float64(meanOf[int16](1, 2, 3, 4, 5))},
		{"u32", float64(meanOf[uint32](1, 2, 3, 4, 5))},
		{"i32", float64(meanOf[int32](1, 2, 3, 4, 5))},
		{"u64", float64(meanOf[uint64](1, 2, 3, 4, 5))},
		{"i64", float64(meanOf[int64](1, 2, 3, 4, 5))},
		{"f32", float64(meanOf[float32](1, 2, 3, 4, 5))},
		{"f64", meanOf[float64](1, 2, 3, 4, 5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != 3 {
				t.Errorf("got %v, want 3", tt.got)
			}
		})
	}
}

func TestAverage_Overflow(t *testing.T) {
	if got := meanOf[uint8](121, 122, 123, 124, 125); got != 123 {
		t.Errorf("u8: got %d, want 123", got)
	}
	if got := meanOf[int32](-1073741821, -1073741822, -1073741823, -1073741824, -1073741825); got != -1073741823 {
		t.Errorf("i32: got %d, want -1073741823", got)
	}
	if got := meanOf[uint64](1<<63, 1<<63, 1<<63); got != 1<<63 {
		t.Errorf("u64: got %d, want %d", got, uint64(1<<63))
	}
}

func TestAverage_TruncatesTowardZero(t *testing.T) {
	if got := meanOf[int64](1, 2, 3, 4, -5); got != 1 {
		t.Errorf("got %d, want 1", got)
	}
	if got := meanOf[int16](-1, -2); got != -1 {
		t.Errorf("got %d, want -1", got)
	}
}

func TestAverage_Idempotent(t *testing.T) {
	var a Average[uint32]
	for _, v := range []uint32{1, 2, 3, 4, 5} {
		a.Add(v)
	}
	first := a.Mean()
	second := a.Mean()
	if first != 3 || second != 3 {
		t.Errorf("got %d then %d, want 3 both times", first, second)
	}
	if a.Count() != 5 {
		t.Errorf("Count: got %d, want 5", a.Count())
	}
}

func TestAverage_Empty(t *testing.T) {
	var ai Average[int32]
	if ai.Mean() != 0 {
		t.Errorf("int32: got %d, want 0", ai.Mean())
	}
	var af Average[float64]
	if af.Mean() != 0 {
		t.Errorf("float64: got %v, want 0", af.Mean())
	}
}
