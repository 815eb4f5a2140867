package routing

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
)

// RouteGroup prefixes patterns and applies shared wrappers.
// Group wrappers run outside route wrappers:
//
//	group1 -> ... -> groupN -> route1 -> ... -> routeN -> handler
type RouteGroup struct {
	Router          // [Embedded Interface]
	Prefix          string
	HandlerWrappers []HandlerWrapper // Group Handler Wrappers
}

// Ensure RouteGroup implements Router
var _ Router = (*RouteGroup)(nil)

// Handle registers "<method> <prefix><subpath>" or "<prefix><subpath>".
// An invalid joined pattern panics, as http.ServeMux does.
func (g *RouteGroup) Handle(subpattern string, handler http.Handler, handlerWrappers ...HandlerWrapper) {
	fullPattern, err := g.join(subpattern)
	if err != nil {
		panic(err)
	}
	g.Router.Handle(fullPattern, Chain(handler, slices.Concat(g.HandlerWrappers, handlerWrappers)...))
}

func (g *RouteGroup) HandleFunc(subpattern string, handleFunc func(http.ResponseWriter, *http.Request), handlerWrappers ...HandlerWrapper) {
	g.Handle(subpattern, http.HandlerFunc(handleFunc), handlerWrappers...)
}

func (g *RouteGroup) join(subpattern string) (string, error) {
	method, subpath, hasMethod := strings.Cut(subpattern, " ")
	if !hasMethod {
		method, subpath = "", subpattern
	}
	path := g.Prefix + subpath
	if strings.Contains(path, "//") {
		return "", fmt.Errorf("routing: bad pattern %q in group %q", subpattern, g.Prefix)
	}
	if method == "" {
		return path, nil
	}
	return method + " " + path, nil
}

// Group makes a subgroup: prefix extended, wrappers appended after this group's
//
//	router.Group("/admin/", func(admin *RouteGroup) {
//	  admin.Handle("GET stats", statsHandler)  // "GET /admin/stats"
//	})
func (g *RouteGroup) Group(subPrefix string, batch func(*RouteGroup), handlerWrappers ...HandlerWrapper) *RouteGroup {
	subg := &RouteGroup{
		Router:          g.Router,
		Prefix:          g.Prefix + subPrefix,
		HandlerWrappers: slices.Concat(g.HandlerWrappers, handlerWrappers),
	}
	batch(subg)
	return subg
}
