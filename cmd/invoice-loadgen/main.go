// invoice-loadgen sends invoices to a running invoiced, one at a time.
//
//	invoice-loadgen [global flags] csv --input invoice_input_50.csv
//	invoice-loadgen [global flags] fake --count 50
//	invoice-loadgen keygen --dir keys
package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/urfave/cli/v2"
	"github.com/zeptools/gw-invoice/loadgen"
	"github.com/zeptools/gw-invoice/sec"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "invoice-loadgen",
		Usage: "drive POST /generate-invoice/ sequentially and report",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: loadgen.DefaultURL, EnvVars: []string{"INVOICE_URL"}, Usage: "generate endpoint"},
			&cli.DurationFlag{Name: "delay", Value: time.Second, Usage: "pause between attempts"},
			&cli.DurationFlag{Name: "timeout", Value: 60 * time.Second, Usage: "per-request timeout"},
			&cli.DurationFlag{Name: "cpu-sample", Value: time.Second, Usage: "CPU sampling window for the report"},
			&cli.StringFlag{Name: "jwt-key", Usage: "`<kid>_private.pem` to mint a bearer token from"},
			&cli.StringFlag{Name: "jwt-aud", Usage: "token audience"},
			&cli.StringFlag{Name: "jwt-sub", Value: "invoice-loadgen", Usage: "token subject"},
		},
		Commands: []*cli.Command{
			{
				Name:  "csv",
				Usage: "send every row of a CSV export",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Required: true, Usage: "header CSV"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "generated_invoices", Usage: "where returned PDFs are saved"},
					&cli.BoolFlag{Name: "verify", Usage: "check every returned PDF with pdfcpu"},
				},
				Action: runCSV,
			},
			{
				Name:  "fake",
				Usage: "send synthetic invoices",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Value: 50},
					&cli.Uint64Flag{Name: "seed", Usage: "0 = random"},
					&cli.BoolFlag{Name: "verify", Usage: "check every returned PDF with pdfcpu"},
				},
				Action: runFake,
			},
			{
				Name:  "keygen",
				Usage: "write an RSA key pair for bearer auth: <kid>_private.pem, <kid>_public.pem",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dir", Value: "keys"},
					&cli.IntFlag{Name: "bits", Value: 2048},
				},
				Action: keygen,
			},
		},
	}
}

func newRunner(cCtx *cli.Context) (*loadgen.Runner, error) {
	r := &loadgen.Runner{
		Client:    &http.Client{Timeout: cCtx.Duration("timeout")},
		URL:       cCtx.String("url"),
		Delay:     cCtx.Duration("delay"),
		Verify:    cCtx.Bool("verify"),
		CPUSample: cCtx.Duration("cpu-sample"),
	}
	if keyPath := cCtx.String("jwt-key"); keyPath != "" {
		token, err := loadgen.MintToken(loadgen.TokenConf{
			KeyPath:  keyPath,
			Issuer:   "invoice-loadgen",
			Subject:  cCtx.String("jwt-sub"),
			Audience: cCtx.String("jwt-aud"),
			TTL:      time.Hour,
		})
		if err != nil {
			return nil, fmt.Errorf("mint token: %w", err)
		}
		r.Token = token
	}
	return r, nil
}

func runCSV(cCtx *cli.Context) error {
	r, err := newRunner(cCtx)
	if err != nil {
		return err
	}
	r.OutDir = cCtx.String("out")
	f, err := os.Open(cCtx.String("input"))
	if err != nil {
		return err
	}
	defer f.Close()
	rep, err := r.RunCSV(cCtx.Context, f)
	if rep != nil {
		rep.Print(os.Stdout)
	}
	return err
}

func runFake(cCtx *cli.Context) error {
	r, err := newRunner(cCtx)
	if err != nil {
		return err
	}
	seed := cCtx.Uint64("seed")
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rep, err := r.RunFake(cCtx.Context, cCtx.Int("count"), gofakeit.New(seed))
	if rep != nil {
		rep.Print(os.Stdout)
	}
	return err
}

func keygen(cCtx *cli.Context) error {
	dir := cCtx.String("dir")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	key, err := rsa.GenerateKey(rand.Reader, cCtx.Int("bits"))
	if err != nil {
		return err
	}
	kid, err := sec.GenerateKeyID(&key.PublicKey, 16)
	if err != nil {
		return err
	}
	if err = sec.SavePrivatePEMKeyLocal(filepath.Join(dir, kid+"_private.pem"), key); err != nil {
		return err
	}
	if err = sec.SavePublicPEMKeyLocal(filepath.Join(dir, kid+"_public.pem"), &key.PublicKey); err != nil {
		return err
	}
	fmt.Printf("key id %s written to %s\n", kid, dir)
	return nil
}
