package pdfs

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Canvas is an opaque RGB copy of a template that text gets drawn onto.
// The source template is never touched.
type Canvas struct {
	img    *image.NRGBA
	face   font.Face
	ascent int
}

// NewCanvas flattens tpl onto white, dropping any alpha channel
func NewCanvas(tpl image.Image, face font.Face) *Canvas {
	src := imaging.Clone(tpl) // normalized to (0,0) origin
	bg := imaging.New(src.Bounds().Dx(), src.Bounds().Dy(), color.White)
	return &Canvas{
		img:    imaging.Overlay(bg, src, image.Pt(0, 0), 1.0),
		face:   face,
		ascent: face.Metrics().Ascent.Ceil(),
	}
}

// Text draws s in black with its top-left corner at (x, y)
func (c *Canvas) Text(x int, y int, s string) {
	d := font.Drawer{
		Dst:  c.img,
		Src:  image.Black,
		Face: c.face,
		Dot:  fixed.P(x, y+c.ascent),
	}
	d.DrawString(s)
}

func (c *Canvas) Image() *image.NRGBA {
	return c.img
}
