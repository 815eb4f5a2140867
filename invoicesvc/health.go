package invoicesvc

import (
	"net/http"

	"github.com/zeptools/gw-invoice/counter"
	"github.com/zeptools/gw-invoice/responses"
)

type healthPayload struct {
	Status  string `json:"status"`
	Font    string `json:"font"`
	Counter string `json:"counter"`
	LastSeq *int64 `json:"last_seq,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Health reports the resolved font and the counter backend.
// 503 when the counter cannot be read.
type Health struct {
	FontName string
	Counter  counter.Counter
}

func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p := healthPayload{Status: "ok", Font: h.FontName, Counter: h.Counter.Name()}
	if peeker, ok := h.Counter.(counter.Peeker); ok {
		last, err := peeker.Current(r.Context())
		if err != nil {
			p.Status = "degraded"
			p.Error = err.Error()
			responses.EncodeWriteJSON(w, http.StatusServiceUnavailable, p)
			return
		}
		p.LastSeq = &last
	}
	responses.EncodeWriteJSON(w, http.StatusOK, p)
}
