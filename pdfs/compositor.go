package pdfs

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"strconv"

	"github.com/zeptools/gw-invoice/invoice"
	"github.com/zeptools/gw-invoice/layout"
	"github.com/zeptools/gw-invoice/rw"
)

// Document is one rendered invoice. Write-once: never modify the bytes.
type Document struct {
	b           []byte
	contentType string
}

func (d *Document) Bytes() []byte       { return d.b }
func (d *Document) Len() int            { return len(d.b) }
func (d *Document) ContentType() string { return d.contentType }

// WriteTo implements io.WriterTo
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := rw.NewCountWriter(w)
	_, err := cw.Write(d.b)
	return cw.BytesWritten(), err
}

// Compositor draws invoice records onto a template at the positions of a Layout.
// Safe for concurrent use: all per-call state is local to Render.
type Compositor struct {
	Layout       *layout.Layout
	Font         *Font
	Templates    TemplateSource
	TemplateName string
	Encoder      Encoder
}

// Compose renders rec and encodes it. All-or-nothing: on error no document is returned.
func (c *Compositor) Compose(rec *invoice.Record) (*Document, error) {
	page, err := c.Render(rec)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err = c.Encoder.Encode(&buf, page); err != nil {
		return nil, &invoice.CompositionError{Op: "encode", Err: err}
	}
	return &Document{b: buf.Bytes(), contentType: c.Encoder.ContentType()}, nil
}

// Render draws rec onto a fresh copy of the template and returns the raster page
func (c *Compositor) Render(rec *invoice.Record) (page *image.NRGBA, err error) {
	defer func() {
		if r := recover(); r != nil {
			page = nil
			err = invoice.Compositionf("render", "panic: %v", r)
		}
	}()

	items, err := rec.LineItems()
	if err != nil {
		return nil, err
	}
	tpl, err := c.Templates.Open(c.TemplateName)
	if err != nil {
		return nil, &invoice.CompositionError{Op: "template", Err: err}
	}
	face, err := c.Font.Face()
	if err != nil {
		return nil, &invoice.CompositionError{Op: "font", Err: err}
	}
	defer face.Close()

	canvas := NewCanvas(tpl, face)
	l := c.Layout

	for _, p := range l.Fields {
		v, err := rec.Field(p.Field)
		if err != nil {
			return nil, &invoice.CompositionError{Op: "fields", Err: err}
		}
		canvas.Text(p.X, p.Y, v)
	}

	cols := l.Table.Columns
	for i, item := range items {
		y := l.Table.RowY(i)
		canvas.Text(cols[layout.ColNo], y, strconv.Itoa(item.No))
		canvas.Text(cols[layout.ColHSCode], y, item.HSCode)
		canvas.Text(cols[layout.ColMarksAndNos], y, item.MarksAndNos)
		canvas.Text(cols[layout.ColPackage], y, item.Package)
		canvas.Text(cols[layout.ColDescription], y, item.Description)
		canvas.Text(cols[layout.ColQuantity], y, strconv.Itoa(item.Quantity))
		canvas.Text(cols[layout.ColRate], y, invoice.FormatMoney(item.Rate))
		canvas.Text(cols[layout.ColAmount], y, invoice.FormatMoney(item.Amount()))
	}

	f := l.Footer
	canvas.Text(f.NetWeight.X, f.NetWeight.Y, weightText(rec.Weights, "net", f))
	canvas.Text(f.GrossWeight.X, f.GrossWeight.Y, weightText(rec.Weights, "gross", f))
	canvas.Text(f.TotalAmount.X, f.TotalAmount.Y, rec.TotalAmountText)
	canvas.Text(f.CompanyName.X, f.CompanyName.Y, rec.CompanyName)

	return canvas.Image(), nil
}

func weightText(w invoice.Weights, key string, f layout.Footer) string {
	return fmt.Sprintf("%s %s", w.Text(key, f.Missing), f.WeightUnit)
}
