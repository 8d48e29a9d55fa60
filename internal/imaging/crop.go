package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/cbf-tools-mcp/internal/cbf"
)

// CropResult contains the cropped image data
type CropResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	Window      Window `json:"window"`
	Region      Region `json:"region"`
}

// Crop renders a rectangular region of img. The display window is taken from
// the whole frame so neighbouring crops are comparable.
func Crop(img *cbf.Image, x1, y1, x2, y2 int, opts RenderOptions) (*CropResult, error) {
	if x1 < 0 || y1 < 0 || x2 > img.Width || y2 > img.Height {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (0,0)-(%d,%d)",
			x1, y1, x2, y2, img.Width, img.Height)
	}
	if x1 >= x2 || y1 >= y2 {
		return nil, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}

	full, win, err := renderRGBA(img, opts)
	if err != nil {
		return nil, err
	}
	var cropped image.Image = imaging.Crop(full, image.Rect(x1, y1, x2, y2))
	if cropped, err = postProcess(cropped, opts); err != nil {
		return nil, err
	}

	encoded, err := EncodePNGBase64(cropped)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cropped image: %w", err)
	}

	return &CropResult{
		Width:       cropped.Bounds().Dx(),
		Height:      cropped.Bounds().Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
		Window:      win,
		Region:      Region{X1: x1, Y1: y1, X2: x2, Y2: y2},
	}, nil
}

// QuadrantRegions lists the names accepted by CropQuadrant.
var QuadrantRegions = []string{
	"top-left", "top-right", "bottom-left", "bottom-right",
	"top-half", "bottom-half", "left-half", "right-half", "center",
}

// NamedRegion resolves a region name against a width x height frame.
func NamedRegion(name string, w, h int) (Region, error) {
	midX := w / 2
	midY := h / 2

	switch name {
	case "top-left":
		return Region{0, 0, midX, midY}, nil
	case "top-right":
		return Region{midX, 0, w, midY}, nil
	case "bottom-left":
		return Region{0, midY, midX, h}, nil
	case "bottom-right":
		return Region{midX, midY, w, h}, nil
	case "top-half":
		return Region{0, 0, w, midY}, nil
	case "bottom-half":
		return Region{0, midY, w, h}, nil
	case "left-half":
		return Region{0, 0, midX, h}, nil
	case "right-half":
		return Region{midX, 0, w, h}, nil
	case "center":
		// Center 50% of the image, around the beam
		qW := w / 4
		qH := h / 4
		return Region{qW, qH, w - qW, h - qH}, nil
	}
	return Region{}, fmt.Errorf("unknown region: %s", name)
}

// CropQuadrant renders a named region of img.
func CropQuadrant(img *cbf.Image, name string, opts RenderOptions) (*CropResult, error) {
	r, err := NamedRegion(name, img.Width, img.Height)
	if err != nil {
		return nil, err
	}
	return Crop(img, r.X1, r.Y1, r.X2, r.Y2, opts)
}
