package invoicesvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/zeptools/gw-invoice/counter"
	"github.com/zeptools/gw-invoice/uds"
)

// AdminCommands are the unix socket console commands
func AdminCommands(g *Generator, fontName string) uds.CommandStore {
	return uds.CommandStore{
		"counter": {
			Desc:  "show the counter backend and the last issued number",
			Usage: "counter",
			Fn: func(args []string, w io.Writer) error {
				peeker, ok := g.Counter.(counter.Peeker)
				if !ok {
					_, err := fmt.Fprintf(w, "%s: last=unknown\n", g.Counter.Name())
					return err
				}
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				last, err := peeker.Current(ctx)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(w, "%s: last=%d\n", g.Counter.Name(), last)
				return err
			},
		},
		"font": {
			Desc:  "show the font used for drawing",
			Usage: "font",
			Fn: func(args []string, w io.Writer) error {
				_, err := fmt.Fprintln(w, fontName)
				return err
			},
		},
		"stats": {
			Desc:  "show request counts since start",
			Usage: "stats",
			Fn: func(args []string, w io.Writer) error {
				if len(args) > 0 {
					return errors.New("usage: stats")
				}
				s := g.Stats()
				_, err := fmt.Fprintf(w, "uptime=%s ok=%d failed=%d archived=%d last_seq=%d\n",
					s.Uptime, s.Succeeded, s.Failed, s.Archived, s.LastSeq)
				return err
			},
		},
	}
}
