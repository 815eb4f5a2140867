package pdfs

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Encoder turns a composed raster page into a paginated document
type Encoder interface {
	ContentType() string
	Encode(w io.Writer, page image.Image) error
}

// GofpdfEncoder embeds the raster as the single page of a PDF,
// the page sized to the image at DPI (1px = 1pt at the default 72).
type GofpdfEncoder struct {
	ImageFormat string           // "jpg" (default) | "png"
	JPEGQuality int              // default 75
	DPI         float64          // default 72
	Producer    string           // PDF /Producer
	Now         func() time.Time // PDF /CreationDate. nil = time.Now
}

// Ensure GofpdfEncoder implements Encoder
var _ Encoder = (*GofpdfEncoder)(nil)

func (e *GofpdfEncoder) ContentType() string {
	return "application/pdf"
}

func (e *GofpdfEncoder) Encode(w io.Writer, page image.Image) error {
	imgType, raster, err := e.encodeRaster(page)
	if err != nil {
		return err
	}
	size := ImagePaperSize(page.Bounds(), e.DPI)

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: size.Width, Ht: size.Height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCatalogSort(true)
	if e.Producer != "" {
		pdf.SetProducer(e.Producer, true)
	}
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	pdf.SetCreationDate(now())

	opts := gofpdf.ImageOptions{ImageType: imgType}
	pdf.RegisterImageOptionsReader("page", opts, raster)
	pdf.AddPage()
	pdf.ImageOptions("page", 0, 0, size.Width, size.Height, false, opts, 0, "")
	if pdf.Err() {
		return fmt.Errorf("gofpdf: %w", pdf.Error())
	}
	return pdf.Output(w)
}

func (e *GofpdfEncoder) encodeRaster(page image.Image) (string, *bytes.Buffer, error) {
	var buf bytes.Buffer
	switch strings.ToLower(e.ImageFormat) {
	case "", "jpg", "jpeg":
		q := e.JPEGQuality
		if q <= 0 {
			q = 75
		}
		if err := jpeg.Encode(&buf, page, &jpeg.Options{Quality: q}); err != nil {
			return "", nil, fmt.Errorf("jpeg encode: %w", err)
		}
		return "JPG", &buf, nil
	case "png":
		if err := png.Encode(&buf, page); err != nil {
			return "", nil, fmt.Errorf("png encode: %w", err)
		}
		return "PNG", &buf, nil
	}
	return "", nil, fmt.Errorf("unsupported page image format %q", e.ImageFormat)
}
