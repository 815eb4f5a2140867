package loadgen

import (
	"fmt"
	"math"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/zeptools/gw-invoice/invoice"
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FakeRecord builds a plausible export invoice with 1 to 5 line items.
// The total text is computed from the line items, so records always agree with themselves.
func FakeRecord(f *gofakeit.Faker) *invoice.Record {
	n := f.IntRange(1, 5)
	rec := &invoice.Record{
		Exporter:         f.Company(),
		InvoiceNo:        fmt.Sprintf("INV-%d", f.IntRange(1000, 9999)),
		ExporterRef:      fmt.Sprintf("REF-%d", f.IntRange(10000, 99999)),
		Consignee:        f.Name(),
		Buyer:            f.Name(),
		PlaceOfReceipt:   f.City(),
		Origin:           f.Country(),
		Destination:      f.Country(),
		Vessel:           capitalize(f.Word()),
		PortLoading:      f.City(),
		PortDischarge:    f.City(),
		FinalDestination: f.City(),
		PreCarriageBy:    "Truck",
		TermsDelivery:    "FOB",
		PaymentTerms:     "Net 30",
		CompanyName:      f.Company(),
		HSCodes:          make([]string, n),
		MarksAndNos:      make([]string, n),
		Packages:         make([]string, n),
		Descriptions:     make([]string, n),
		Quantities:       make([]int, n),
		Rates:            make([]float64, n),
	}
	total := 0.0
	for i := 0; i < n; i++ {
		rec.HSCodes[i] = fmt.Sprintf("HS%d", f.IntRange(100, 999))
		rec.MarksAndNos[i] = f.Word()
		rec.Packages[i] = f.Word()
		rec.Descriptions[i] = sentence(f, f.IntRange(3, 6))
		rec.Quantities[i] = f.IntRange(1, 20)
		rec.Rates[i] = round2(f.Float64Range(100, 1000))
		total += float64(rec.Quantities[i]) * rec.Rates[i]
	}
	net := round2(f.Float64Range(100, 500))
	gross := round2(net + f.Float64Range(50, 200))
	rec.Weights = invoice.Weights{"net": net, "gross": gross}
	rec.TotalAmountText = "USD " + invoice.FormatMoney(round2(total))
	return rec
}

func sentence(f *gofakeit.Faker, words int) string {
	parts := make([]string, words)
	for i := range parts {
		parts[i] = f.Word()
	}
	return capitalize(strings.Join(parts, " ")) + "."
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
