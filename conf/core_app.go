package conf

import (
	"log"
	"strings"

	"github.com/zeptools/gw-invoice/invoicesvc"
	"github.com/zeptools/gw-invoice/metrics"
	"github.com/zeptools/gw-invoice/routing"
)

// PrepareInvoiceRouter builds the generator and mounts every HTTP route.
// Needs PrepareCompositor, PrepareCounter, PrepareArchiver, PrepareAuth and
// PrepareThrottleBucketStore to have run.
func (c *Core) PrepareInvoiceRouter(m *metrics.Metrics) *routing.BaseRouter {
	c.Generator = invoicesvc.NewGenerator(c.Compositor, c.InvoiceCounter, c.Archiver, m)
	rt := invoicesvc.Routes{
		Generator: c.Generator,
		Health:    &invoicesvc.Health{FontName: c.ResolvedFont.Name, Counter: c.InvoiceCounter},
		Metrics:   m,
		Auth:      c.BearerAuth,
	}
	if c.ThrottleBucketStore != nil { // keep a nil store out of the interface
		rt.Throttle = c.ThrottleBucketStore
	}
	router := routing.NewRouter()
	invoicesvc.Mount(router, rt)
	log.Printf("[INFO] routes: %s", strings.Join(router.Patterns(), ", "))
	return router
}
