package invoicesvc

import (
	"net/http"

	"github.com/zeptools/gw-invoice/metrics"
	"github.com/zeptools/gw-invoice/responses"
	"github.com/zeptools/gw-invoice/routing"
	"github.com/zeptools/gw-invoice/sec"
)

// Routes is everything Mount needs. Auth and Throttle are optional.
type Routes struct {
	Generator *Generator
	Health    *Health
	Metrics   *metrics.Metrics
	Auth      *sec.BearerAuth       // nil = open endpoint
	Throttle  routing.HandlerWrapper // nil = no rate limit
}

// Mount registers the HTTP routes:
//
//	POST /generate-invoice/   (also without the trailing slash)
//	GET  /healthz
//	GET  /metrics
//	GET  /.well-known/jwks.json   (auth on)
func Mount(router *routing.BaseRouter, rt Routes) {
	var guards []routing.HandlerWrapper
	if rt.Throttle != nil {
		guards = append(guards, rt.Throttle)
	}
	if rt.Auth != nil {
		guards = append(guards, rt.Auth)
	}

	router.Group("", func(g *routing.RouteGroup) {
		gen := append([]routing.HandlerWrapper{rt.Metrics.Route("generate")}, guards...)
		g.Handle("POST /generate-invoice/{$}", rt.Generator, gen...)
		g.Handle("POST /generate-invoice", rt.Generator, gen...)

		g.Handle("GET /healthz", rt.Health, rt.Metrics.Route("healthz"))
		g.Handle("GET /metrics", rt.Metrics.Handler())
		if rt.Auth != nil {
			g.HandleFunc("GET /.well-known/jwks.json", func(w http.ResponseWriter, r *http.Request) {
				jwks := rt.Auth.Keys.JWKS()
				if len(jwks.Keys) == 0 {
					responses.WriteSimpleErrorJSON(w, http.StatusNotFound, "no keys loaded")
					return
				}
				responses.EncodeWriteJSON(w, http.StatusOK, jwks)
			})
		}
	}, routing.AccessLogWrapper, routing.RecoverWrapper)
}
