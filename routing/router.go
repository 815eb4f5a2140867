package routing

import (
	"net/http"
	"slices"
	"sync"

	"github.com/zeptools/gw-invoice/responses"
)

// Router is implemented by BaseRouter and RouteGroup
type Router interface {
	ServeHTTP(w http.ResponseWriter, r *http.Request)
	Handle(pattern string, handler http.Handler, handlerWrappers ...HandlerWrapper)
	HandleFunc(pattern string, handleFunc func(http.ResponseWriter, *http.Request), handlerWrappers ...HandlerWrapper)
}

// BaseRouter is an http.ServeMux that remembers its patterns and
// answers unmatched paths in the service's plain-text error format.
type BaseRouter struct {
	*http.ServeMux // Embedded
	mu             sync.Mutex
	patterns       []string
}

// Ensure BaseRouter implements Router
var _ Router = (*BaseRouter)(nil)

func NewRouter() *BaseRouter {
	r := &BaseRouter{ServeMux: http.NewServeMux()}
	r.ServeMux.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		responses.WriteErrorText(w, http.StatusNotFound, "no route for "+req.Method+" "+req.URL.Path)
	})
	return r
}

// Handle registers pattern with handler wrapped by handlerWrappers, first wrapper outermost
func (r *BaseRouter) Handle(pattern string, handler http.Handler, handlerWrappers ...HandlerWrapper) {
	r.ServeMux.Handle(pattern, Chain(handler, handlerWrappers...))
	r.mu.Lock()
	r.patterns = append(r.patterns, pattern)
	r.mu.Unlock()
}

func (r *BaseRouter) HandleFunc(pattern string, handleFunc func(http.ResponseWriter, *http.Request), handlerWrappers ...HandlerWrapper) {
	r.Handle(pattern, http.HandlerFunc(handleFunc), handlerWrappers...)
}

// Group registers the routes added by batch under prefix, all wrapped by handlerWrappers
func (r *BaseRouter) Group(prefix string, batch func(*RouteGroup), handlerWrappers ...HandlerWrapper) *RouteGroup {
	g := &RouteGroup{
		Router:          r,
		Prefix:          prefix,
		HandlerWrappers: slices.Clone(handlerWrappers),
	}
	batch(g)
	return g
}

// Patterns lists the registered patterns, sorted
func (r *BaseRouter) Patterns() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := slices.Clone(r.patterns)
	slices.Sort(out)
	return out
}
