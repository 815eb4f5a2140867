package pdfs

import "image"

type PaperSize struct {
	Name   string
	Width  float64 // in `pt` (1" = 72pts)
	Height float64 // in `pt`
}

// ImagePaperSize is a page exactly covering a raster of the given bounds at dpi.
// dpi <= 0 means 72, i.e. 1px = 1pt
func ImagePaperSize(bounds image.Rectangle, dpi float64) PaperSize {
	if dpi <= 0 {
		dpi = 72
	}
	scale := 72 / dpi
	return PaperSize{
		Name:   "Image",
		Width:  float64(bounds.Dx()) * scale,
		Height: float64(bounds.Dy()) * scale,
	}
}
