package layout

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/zeptools/gw-invoice/invoice"
	"gopkg.in/yaml.v3"
)

// Point in template pixels. (0,0) = top-left. Text is anchored at its top-left corner.
type Point struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
}

// Placement puts one scalar invoice field (by wire name) at a point
type Placement struct {
	Field string `yaml:"field" json:"field"`
	Point `yaml:",inline"`
}

// Column roles of the line-item table, in draw order
const (
	ColNo = iota
	ColHSCode
	ColMarksAndNos
	ColPackage
	ColDescription
	ColQuantity
	ColRate
	ColAmount
	NumColumns
)

// Table describes the repeating line-item rows
type Table struct {
	Columns   [NumColumns]int `yaml:"columns" json:"columns"` // x per column role
	YStart    int             `yaml:"y_start" json:"y_start"`
	RowHeight int             `yaml:"row_height" json:"row_height"`
}

// RowY returns the y of the i-th (0-basis) row
func (t Table) RowY(i int) int {
	return t.YStart + i*t.RowHeight
}

type Footer struct {
	NetWeight   Point  `yaml:"net_weight" json:"net_weight"`
	GrossWeight Point  `yaml:"gross_weight" json:"gross_weight"`
	TotalAmount Point  `yaml:"total_amount" json:"total_amount"`
	CompanyName Point  `yaml:"company_name" json:"company_name"`
	WeightUnit  string `yaml:"weight_unit" json:"weight_unit"`
	Missing     string `yaml:"missing" json:"missing"` // substitute for an absent weight key
}

// Layout maps an invoice.Record onto one template image
type Layout struct {
	Fields []Placement `yaml:"fields" json:"fields"`
	Table  Table       `yaml:"table" json:"table"`
	Footer Footer      `yaml:"footer" json:"footer"`
}

// Default is the layout of the stock commercial-invoice template
func Default() *Layout {
	return &Layout{
		Fields: []Placement{
			{"exporter", Point{100, 375}},
			{"invoice_no", Point{1350, 375}},
			{"exporter_ref", Point{1950, 375}},
			{"consignee", Point{100, 615}},
			{"buyer", Point{1300, 625}},
			{"pre_carriage_by", Point{100, 850}},
			{"place_of_receipt", Point{700, 850}},
			{"origin", Point{1350, 875}},
			{"destination", Point{1950, 875}},
			{"vessel", Point{90, 975}},
			{"port_loading", Point{700, 975}},
			{"port_discharge", Point{90, 1225}},
			{"final_destination", Point{700, 1225}},
			{"terms_delivery", Point{1350, 1200}},
			{"payment_terms", Point{1350, 1250}},
		},
		Table: Table{
			Columns:   [NumColumns]int{100, 300, 500, 850, 1275, 1700, 1950, 2200},
			YStart:    1440,
			RowHeight: 55,
		},
		Footer: Footer{
			NetWeight:   Point{500, 2250},
			GrossWeight: Point{500, 2350},
			TotalAmount: Point{700, 2450},
			CompanyName: Point{1750, 2600},
			WeightUnit:  "KGS",
			Missing:     "N/A",
		},
	}
}

var ErrInvalidLayout = errors.New("invalid layout")

// Validate checks field names and coordinates
func (l *Layout) Validate() error {
	for _, p := range l.Fields {
		if !slices.Contains(invoice.ScalarFields, p.Field) {
			return fmt.Errorf("%w: unknown field %q", ErrInvalidLayout, p.Field)
		}
		if p.X < 0 || p.Y < 0 {
			return fmt.Errorf("%w: negative coordinate for %q", ErrInvalidLayout, p.Field)
		}
	}
	for i, x := range l.Table.Columns {
		if x < 0 {
			return fmt.Errorf("%w: negative x for table column %d", ErrInvalidLayout, i)
		}
	}
	if l.Table.YStart < 0 || l.Table.RowHeight <= 0 {
		return fmt.Errorf("%w: table needs y_start >= 0 and row_height > 0", ErrInvalidLayout)
	}
	return nil
}

// Load reads a YAML layout file. Sections missing from the file keep the Default() values.
func Load(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	l := Default()
	if err = yaml.Unmarshal(data, l); err != nil {
		return nil, fmt.Errorf("parse layout %s: %w", path, err)
	}
	if err = l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}
