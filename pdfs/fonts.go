package pdfs

import (
	"fmt"
	"log"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
)

const (
	FallbackGoBold = "gobold" // embedded Go Bold, scaled to FontConf.Size
	FallbackBasic  = "basic"  // 7x13 bitmap face, size ignored
)

type FontConf struct {
	Path     string  `json:"path"`     // TrueType/OpenType file. e.g. "arialbd.ttf"
	Size     float64 `json:"size"`     // in px. default 30
	Fallback string  `json:"fallback"` // "gobold" (default) | "basic"
}

// Font is the process-wide text font, resolved once at startup.
// opentype faces keep glyph buffers and are not safe for concurrent use,
// so every render gets its own face via Face().
type Font struct {
	Name string
	Size float64
	sfnt *opentype.Font // nil = basic bitmap face
}

// ResolveFont tries conf.Path first, then the fallback. The decision is logged.
func ResolveFont(conf FontConf) (*Font, error) {
	if conf.Size <= 0 {
		conf.Size = 30
	}
	if conf.Path != "" {
		f, err := loadFontFile(conf.Path, conf.Size)
		if err == nil {
			log.Printf("[INFO] font: using %q at %.0fpx", conf.Path, conf.Size)
			return f, nil
		}
		log.Printf("[WARN] font: %q unavailable (%v). falling back to %q", conf.Path, err, fallbackName(conf.Fallback))
	}
	switch fallbackName(conf.Fallback) {
	case FallbackGoBold:
		sfnt, err := opentype.Parse(gobold.TTF)
		if err != nil {
			return nil, fmt.Errorf("parse embedded gobold: %w", err)
		}
		log.Printf("[INFO] font: using embedded %q at %.0fpx", FallbackGoBold, conf.Size)
		return &Font{Name: FallbackGoBold, Size: conf.Size, sfnt: sfnt}, nil
	case FallbackBasic:
		log.Printf("[INFO] font: using %q bitmap face", FallbackBasic)
		return &Font{Name: FallbackBasic, Size: 13}, nil
	}
	return nil, fmt.Errorf("unknown font fallback %q", conf.Fallback)
}

func fallbackName(s string) string {
	if s == "" {
		return FallbackGoBold
	}
	return s
}

func loadFontFile(path string, size float64) (*Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sfnt, err := opentype.Parse(data)
	if err != nil {
		return nil, err
	}
	return &Font{Name: path, Size: size, sfnt: sfnt}, nil
}

// Face returns a fresh face for a single render
func (f *Font) Face() (font.Face, error) {
	if f.sfnt == nil {
		return basicfont.Face7x13, nil
	}
	return opentype.NewFace(f.sfnt, &opentype.FaceOptions{
		Size:    f.Size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
