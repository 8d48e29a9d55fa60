package imaging

import (
	"testing"
)

func TestCrop(t *testing.T) {
	img := quadrantImage(100, 100)

	result, err := Crop(img, 0, 0, 50, 50, RenderOptions{})
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}

	if result.Width != 50 || result.Height != 50 {
		t.Errorf("dimensions: got %dx%d, want 50x50", result.Width, result.Height)
	}
	if result.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", result.MimeType)
	}
	if result.Region != (Region{0, 0, 50, 50}) {
		t.Errorf("Region: got %+v, want (0,0)-(50,50)", result.Region)
	}
	// The window comes from the whole frame, not the crop.
	if result.Window != (Window{Min: 10, Max: 40}) {
		t.Errorf("Window: got %+v, want [10, 40]", result.Window)
	}

	decodePNG(t, result.ImageBase64)
}

func TestCrop_WithScale(t *testing.T) {
	img := quadrantImage(100, 100)

	tests := []struct {
		name         string
		x2, y2       int
		scale        float64
		wantW, wantH int
	}{
		{"scale up", 50, 50, 2.0, 100, 100},
		{"scale down", 100, 100, 0.5, 50, 50},
		{"no scale", 40, 20, 1.0, 40, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Crop(img, 0, 0, tt.x2, tt.y2, RenderOptions{Scale: tt.scale})
			if err != nil {
				t.Fatalf("Crop failed: %v", err)
			}
			if result.Width != tt.wantW || result.Height != tt.wantH {
				t.Errorf("dimensions: got %dx%d, want %dx%d", result.Width, result.Height, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestCrop_OutOfBounds(t *testing.T) {
	img := uniformImage(100, 100, 1)

	tests := []struct {
		name           string
		x1, y1, x2, y2 int
	}{
		{"negative x1", -1, 0, 50, 50},
		{"negative y1", 0, -1, 50, 50},
		{"x2 exceeds width", 0, 0, 101, 50},
		{"y2 exceeds height", 0, 0, 50, 101},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Crop(img, tt.x1, tt.y1, tt.x2, tt.y2, RenderOptions{}); err == nil {
				t.Error("expected error for out-of-bounds crop")
			}
		})
	}
}

func TestCrop_InvalidRegion(t *testing.T) {
	img := uniformImage(100, 100, 1)

	tests := []struct {
		name           string
		x1, y1, x2, y2 int
	}{
		{"x1 equals x2", 50, 0, 50, 50},
		{"y1 equals y2", 0, 50, 50, 50},
		{"x1 greater than x2", 60, 0, 50, 50},
		{"y1 greater than y2", 0, 60, 50, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Crop(img, tt.x1, tt.y1, tt.x2, tt.y2, RenderOptions{}); err == nil {
				t.Error("expected error for invalid region")
			}
		})
	}
}

func TestCrop_InvalidColormap(t *testing.T) {
	img := uniformImage(10, 10, 1)
	if _, err := Crop(img, 0, 0, 5, 5, RenderOptions{Colormap: "rainbow"}); err == nil {
		t.Error("expected error for unknown colormap")
	}
}

func TestCropQuadrant(t *testing.T) {
	img := quadrantImage(100, 100)

	tests := []struct {
		region       string
		wantW, wantH int
	}{
		{"top-left", 50, 50},
		{"top-right", 50, 50},
		{"bottom-left", 50, 50},
		{"bottom-right", 50, 50},
		{"top-half", 100, 50},
		{"bottom-half", 100, 50},
		{"left-half", 50, 100},
		{"right-half", 50, 100},
		{"center", 50, 50},
	}

	for _, tt := range tests {
		t.Run(tt.region, func(t *testing.T) {
			result, err := CropQuadrant(img, tt.region, RenderOptions{})
			if err != nil {
				t.Fatalf("CropQuadrant(%s) failed: %v", tt.region, err)
			}
			if result.Width != tt.wantW || result.Height != tt.wantH {
				t.Errorf("dimensions: got %dx%d, want %dx%d",
					result.Width, result.Height, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestCropQuadrant_InvalidRegion(t *testing.T) {
	img := uniformImage(100, 100, 1)

	for _, region := range []string{"invalid", "TOP-LEFT", "middle", "", "center-left"} {
		t.Run(region, func(t *testing.T) {
			if _, err := CropQuadrant(img, region, RenderOptions{}); err == nil {
				t.Errorf("CropQuadrant should fail for invalid region %q", region)
			}
		})
	}
}

func TestCropQuadrant_VerifyContent(t *testing.T) {
	img := quadrantImage(100, 100)

	// Window is [10, 40]; the inverted stretch darkens high counts.
	tests := []struct {
		region   string
		wantGrey uint8
	}{
		{"top-left", 255},
		{"top-right", 170},
		{"bottom-left", 85},
		{"bottom-right", 0},
	}

	for _, tt := range tests {
		t.Run(tt.region, func(t *testing.T) {
			result, err := CropQuadrant(img, tt.region, RenderOptions{})
			if err != nil {
				t.Fatalf("CropQuadrant(%s) failed: %v", tt.region, err)
			}

			cropped := decodePNG(t, result.ImageBase64)
			r, g, b, _ := cropped.At(result.Width/2, result.Height/2).RGBA()
			if uint8(r>>8) != tt.wantGrey || uint8(g>>8) != tt.wantGrey || uint8(b>>8) != tt.wantGrey {
				t.Errorf("grey in %s: got (%d,%d,%d), want %d", tt.region, r>>8, g>>8, b>>8, tt.wantGrey)
			}
		})
	}
}

func TestNamedRegion_OddDimensions(t *testing.T) {
	r, err := NamedRegion("top-left", 101, 101)
	if err != nil {
		t.Fatalf("NamedRegion failed: %v", err)
	}
	if r != (Region{0, 0, 50, 50}) {
		t.Errorf("top-left of 101x101: got %+v, want (0,0)-(50,50)", r)
	}

	r, err = NamedRegion("bottom-right", 101, 101)
	if err != nil {
		t.Fatalf("NamedRegion failed: %v", err)
	}
	if r != (Region{50, 50, 101, 101}) {
		t.Errorf("bottom-right of 101x101: got %+v, want (50,50)-(101,101)", r)
	}
}
