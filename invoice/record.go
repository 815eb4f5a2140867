package invoice

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Record is the wire schema of one invoice accepted by the generate endpoint.
// The six line-item sequences are parallel: index i of each belongs to row i.
type Record struct {
	Exporter         string `json:"exporter"`
	InvoiceNo        string `json:"invoice_no"`
	ExporterRef      string `json:"exporter_ref"`
	Consignee        string `json:"consignee"`
	Buyer            string `json:"buyer"`
	PlaceOfReceipt   string `json:"place_of_receipt"`
	Origin           string `json:"origin"`
	Destination      string `json:"destination"`
	Vessel           string `json:"vessel"`
	PortLoading      string `json:"port_loading"`
	PortDischarge    string `json:"port_discharge"`
	FinalDestination string `json:"final_destination"`
	PreCarriageBy    string `json:"pre_carriage_by"`
	TermsDelivery    string `json:"terms_delivery"`
	PaymentTerms     string `json:"payment_terms"`

	HSCodes      []string   `json:"hs_codes"`
	MarksAndNos  []string   `json:"marks_and_nos"`
	Packages     []string   `json:"packages"`
	Descriptions []string   `json:"descriptions"`
	Quantities   Quantities `json:"quantities"`
	Rates        []float64  `json:"rates"`

	Weights         Weights `json:"weights"`
	TotalAmountText string  `json:"total_amount_text"`
	CompanyName     string  `json:"company_name"`
}

// ScalarFields lists the wire names accepted by Record.Field
var ScalarFields = []string{
	"exporter", "invoice_no", "exporter_ref", "consignee", "buyer",
	"place_of_receipt", "origin", "destination", "vessel", "port_loading",
	"port_discharge", "final_destination", "pre_carriage_by", "terms_delivery",
	"payment_terms", "total_amount_text", "company_name",
}

// RequiredFields lists every wire key Decode insists on, in schema order
var RequiredFields = []string{
	"exporter", "invoice_no", "exporter_ref", "consignee", "buyer",
	"place_of_receipt", "origin", "destination", "vessel", "port_loading",
	"port_discharge", "final_destination", "pre_carriage_by", "terms_delivery",
	"payment_terms", "hs_codes", "marks_and_nos", "packages", "descriptions",
	"quantities", "rates", "weights", "total_amount_text", "company_name",
}

var ErrUnknownField = errors.New("unknown invoice field")

// Quantities accepts whole-valued numbers such as 2.0 as well as plain integers
type Quantities []int

func (q *Quantities) UnmarshalJSON(data []byte) error {
	var nums []json.Number
	if err := json.Unmarshal(data, &nums); err != nil {
		return err
	}
	if nums == nil {
		*q = nil
		return nil
	}
	out := make(Quantities, len(nums))
	for i, n := range nums {
		if v, err := n.Int64(); err == nil && v >= math.MinInt && v <= math.MaxInt {
			out[i] = int(v)
			continue
		}
		f, err := n.Float64()
		if err != nil || f != math.Trunc(f) || f < math.MinInt || f >= math.MaxInt {
			return fmt.Errorf("quantities[%d]: %s is not a whole number", i, n)
		}
		out[i] = int(f)
	}
	*q = out
	return nil
}

// Field returns the string value of a scalar field by its wire name
func (r *Record) Field(name string) (string, error) {
	switch name {
	case "exporter":
		return r.Exporter, nil
	case "invoice_no":
		return r.InvoiceNo, nil
	case "exporter_ref":
		return r.ExporterRef, nil
	case "consignee":
		return r.Consignee, nil
	case "buyer":
		return r.Buyer, nil
	case "place_of_receipt":
		return r.PlaceOfReceipt, nil
	case "origin":
		return r.Origin, nil
	case "destination":
		return r.Destination, nil
	case "vessel":
		return r.Vessel, nil
	case "port_loading":
		return r.PortLoading, nil
	case "port_discharge":
		return r.PortDischarge, nil
	case "final_destination":
		return r.FinalDestination, nil
	case "pre_carriage_by":
		return r.PreCarriageBy, nil
	case "terms_delivery":
		return r.TermsDelivery, nil
	case "payment_terms":
		return r.PaymentTerms, nil
	case "total_amount_text":
		return r.TotalAmountText, nil
	case "company_name":
		return r.CompanyName, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// LineItem is one row of the invoice table
type LineItem struct {
	No          int
	HSCode      string
	MarksAndNos string
	Package     string
	Description string
	Quantity    int
	Rate        float64
}

// Amount = Quantity * Rate
func (li LineItem) Amount() float64 {
	return float64(li.Quantity) * li.Rate
}

// LineItems zips the parallel sequences into rows.
// hs_codes drives the row count. Every other sequence must have the same length,
// otherwise a *CompositionError is returned before anything is drawn.
func (r *Record) LineItems() ([]LineItem, error) {
	n := len(r.HSCodes)
	lengths := []struct {
		name string
		len  int
	}{
		{"marks_and_nos", len(r.MarksAndNos)},
		{"packages", len(r.Packages)},
		{"descriptions", len(r.Descriptions)},
		{"quantities", len(r.Quantities)},
		{"rates", len(r.Rates)},
	}
	for _, l := range lengths {
		if l.len != n {
			return nil, Compositionf("line items", "%s has %d entries, hs_codes has %d", l.name, l.len, n)
		}
	}
	items := make([]LineItem, n)
	for i := 0; i < n; i++ {
		items[i] = LineItem{
			No:          i + 1,
			HSCode:      r.HSCodes[i],
			MarksAndNos: r.MarksAndNos[i],
			Package:     r.Packages[i],
			Description: r.Descriptions[i],
			Quantity:    r.Quantities[i],
			Rate:        r.Rates[i],
		}
	}
	return items, nil
}

// FormatMoney formats with exactly 2 decimals
func FormatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Decode reads exactly one JSON Record. Every key in RequiredFields must be
// present and non-null. Unknown keys are ignored.
// Numbers inside weights are kept as json.Number so they render as sent.
func Decode(r io.Reader) (*Record, error) {
	dec := json.NewDecoder(r)
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode invoice: %w", err)
	}
	if dec.More() {
		return nil, errors.New("decode invoice: trailing data after JSON object")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode invoice: %w", err)
	}
	if fields == nil {
		return nil, errors.New("decode invoice: expected a JSON object, got null")
	}
	for _, key := range RequiredFields {
		v, ok := fields[key]
		if !ok {
			return nil, fmt.Errorf("decode invoice: missing field %q", key)
		}
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return nil, fmt.Errorf("decode invoice: field %q is null", key)
		}
	}

	recDec := json.NewDecoder(bytes.NewReader(raw))
	recDec.UseNumber()
	var rec Record
	if err := recDec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode invoice: %w", err)
	}
	return &rec, nil
}

// Weights maps "net" / "gross" to a scalar. Any other keys are carried but unused.
type Weights map[string]any

// Text returns the display text for key, or missing when the key is absent
func (w Weights) Text(key string, missing string) string {
	v, ok := w[key]
	if !ok {
		return missing
	}
	return ScalarText(v)
}

// ScalarText renders a decoded JSON scalar the way the invoice prints it.
// Integers print as-is, other numbers always carry a decimal point ("250" vs "250.0"),
// null prints as "None" and booleans as "True"/"False".
func ScalarText(v any) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case string:
		return t
	case bool:
		if t {
			return "True"
		}
		return "False"
	case json.Number:
		s := t.String()
		if !strings.ContainsAny(s, ".eE") {
			return s
		}
		f, err := t.Float64()
		if err != nil {
			return s
		}
		return FloatText(f)
	case float64:
		return FloatText(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return fmt.Sprint(v)
}

// FloatText is the shortest round-trip text of f with a decimal point kept
// ("310.0"), switching to exponent form below 1e-4 and from 1e16 ("1e+16", "1e-05").
func FloatText(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	e := strconv.FormatFloat(f, 'e', -1, 64)
	if f != 0 {
		_, expText, _ := strings.Cut(e, "e")
		if exp, err := strconv.Atoi(expText); err == nil && (exp < -4 || exp >= 16) {
			return e
		}
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
