package invoice

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func sampleRecord() *Record {
	return &Record{
		Exporter:     "Acme Exports",
		InvoiceNo:    "INV-1001",
		HSCodes:      []string{"HS100", "HS200"},
		MarksAndNos:  []string{"M1", "M2"},
		Packages:     []string{"box", "crate"},
		Descriptions: []string{"widgets", "gadgets"},
		Quantities:   []int{2, 3},
		Rates:        []float64{10.5, 20.0},
		Weights:      Weights{"net": json.Number("120.5"), "gross": json.Number("130")},
		CompanyName:  "Acme Ltd",
	}
}

func TestLineItemsAmounts(t *testing.T) {
	items, err := sampleRecord().LineItems()
	if err != nil {
		t.Fatalf("LineItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	want := []string{"21.00", "60.00"}
	for i, item := range items {
		if item.No != i+1 {
			t.Errorf("row %d: expected No %d, got %d", i, i+1, item.No)
		}
		if got := FormatMoney(item.Amount()); got != want[i] {
			t.Errorf("row %d: expected amount %s, got %s", i, want[i], got)
		}
	}
	if got := FormatMoney(items[0].Rate); got != "10.50" {
		t.Errorf("expected rate 10.50, got %s", got)
	}
}

func TestLineItemsLengthMismatch(t *testing.T) {
	rec := sampleRecord()
	rec.MarksAndNos = rec.MarksAndNos[:1]
	_, err := rec.LineItems()
	var ce *CompositionError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CompositionError, got %v", err)
	}
	if !strings.Contains(err.Error(), "marks_and_nos") {
		t.Errorf("expected message to name marks_and_nos, got %q", err.Error())
	}
}

func TestLineItemsEmpty(t *testing.T) {
	rec := &Record{}
	items, err := rec.LineItems()
	if err != nil {
		t.Fatalf("LineItems: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items, got %d", len(items))
	}
}

func TestWeightsText(t *testing.T) {
	w := Weights{
		"net":   json.Number("250"),
		"gross": json.Number("260.50"),
		"tare":  "10 kg",
		"other": nil,
	}
	cases := map[string]string{
		"net":     "250",
		"gross":   "260.5",
		"tare":    "10 kg",
		"other":   "None",
		"missing": "N/A",
	}
	for key, want := range cases {
		if got := w.Text(key, "N/A"); got != want {
			t.Errorf("%s: expected %q, got %q", key, want, got)
		}
	}
	if got := ScalarText(float64(300)); got != "300.0" {
		t.Errorf("expected 300.0, got %q", got)
	}
}

func TestFloatTextExponentCutoffs(t *testing.T) {
	cases := map[float64]string{
		1e16:               "1e+16",
		9999999999999998:   "9999999999999998.0",
		0.0001:             "0.0001",
		0.00001:            "1e-05",
		1.5e-7:             "1.5e-07",
		123456789012345678: "1.2345678901234568e+17",
		-2.5e20:            "-2.5e+20",
		0:                  "0.0",
		310:                "310.0",
	}
	for in, want := range cases {
		if got := FloatText(in); got != want {
			t.Errorf("FloatText(%v) = %q, want %q", in, got, want)
		}
	}
	if got := ScalarText(json.Number("1e16")); got != "1e+16" {
		t.Errorf("json.Number 1e16 rendered %q", got)
	}
}

func TestFieldByName(t *testing.T) {
	rec := sampleRecord()
	for _, name := range ScalarFields {
		if _, err := rec.Field(name); err != nil {
			t.Errorf("Field(%q): %v", name, err)
		}
	}
	if v, _ := rec.Field("invoice_no"); v != "INV-1001" {
		t.Errorf("expected INV-1001, got %q", v)
	}
	if _, err := rec.Field("nope"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("expected ErrUnknownField, got %v", err)
	}
}

// fullBody is a complete wire record. overrides replace or (with "-") drop keys.
func fullBody(t *testing.T, overrides map[string]string) string {
	t.Helper()
	fields := map[string]string{
		"hs_codes": `["HS1"]`, "marks_and_nos": `["m"]`, "packages": `["p"]`,
		"descriptions": `["d"]`, "quantities": `[4]`, "rates": `[2.5]`,
		"weights": `{"net":100.25}`,
	}
	for _, key := range RequiredFields {
		if _, ok := fields[key]; !ok {
			fields[key] = `"` + strings.ToUpper(key[:1]) + `"`
		}
	}
	for k, v := range overrides {
		if v == "-" {
			delete(fields, k)
			continue
		}
		fields[k] = v
	}
	parts := make([]string, 0, len(fields))
	for k, v := range fields {
		parts = append(parts, `"`+k+`":`+v)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func TestDecode(t *testing.T) {
	rec, err := Decode(strings.NewReader(fullBody(t, map[string]string{"exporter": `"E"`, "extra_key": `1`})))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if rec.Exporter != "E" || rec.Quantities[0] != 4 || rec.Rates[0] != 2.5 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if got := rec.Weights.Text("net", "N/A"); got != "100.25" {
		t.Errorf("expected 100.25, got %q", got)
	}
	if _, err := Decode(strings.NewReader(fullBody(t, map[string]string{"quantities": `["x"]`}))); err == nil {
		t.Error("expected type error for string quantity")
	}
	if _, err := Decode(strings.NewReader(fullBody(t, nil) + " {}")); err == nil {
		t.Error("expected trailing data error")
	}
}

func TestDecodeRequiresEveryField(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{`{}`, `missing field "exporter"`},
		{`null`, `expected a JSON object`},
		{fullBody(t, map[string]string{"hs_codes": "-", "hscodes": `["HS1"]`}), `missing field "hs_codes"`},
		{fullBody(t, map[string]string{"weights": "null"}), `field "weights" is null`},
		{fullBody(t, map[string]string{"company_name": "-"}), `missing field "company_name"`},
	}
	for _, c := range cases {
		_, err := Decode(strings.NewReader(c.body))
		if err == nil || !strings.Contains(err.Error(), c.want) {
			t.Errorf("Decode(%s): expected %q, got %v", c.body, c.want, err)
		}
		if err != nil && !strings.HasPrefix(err.Error(), "decode invoice: ") {
			t.Errorf("error lacks prefix: %v", err)
		}
	}
}

func TestDecodeWholeNumberQuantities(t *testing.T) {
	rec, err := Decode(strings.NewReader(fullBody(t, map[string]string{
		"hs_codes": `["a","b"]`, "marks_and_nos": `["m","n"]`, "packages": `["p","q"]`,
		"descriptions": `["d","e"]`, "rates": `[1,2]`, "quantities": `[2.0, 3]`,
	})))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(rec.Quantities) != 2 || rec.Quantities[0] != 2 || rec.Quantities[1] != 3 {
		t.Errorf("quantities = %v", rec.Quantities)
	}
	if _, err = Decode(strings.NewReader(fullBody(t, map[string]string{"quantities": `[2.5]`}))); err == nil {
		t.Error("expected error for a fractional quantity")
	}
}
