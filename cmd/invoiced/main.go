// invoiced serves POST /generate-invoice/ and answers with a numbered PDF.
//
//	invoiced [-root <appRoot>]
//
// Config is read from <appRoot>/config/.core.json (+ optional .kv-databases.json, .sql-databases.json).
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/zeptools/gw-invoice/conf"
	"github.com/zeptools/gw-invoice/invoicesvc"
	"github.com/zeptools/gw-invoice/metrics"
)

func main() {
	if err := run(); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

func run() error {
	root := flag.String("root", "", "app root holding config/ (default: the executable's directory)")
	flag.Parse()

	appRoot, err := resolveAppRoot(*root)
	if err != nil {
		return err
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	core := &conf.Core{}
	if err = core.BaseInit(appRoot, rootCtx, rootCancel); err != nil {
		return err
	}
	defer core.ResourceCleanUp()
	log.Printf("[INFO] app root: %s", core.AppRoot)

	if err = core.PrepareKVDatabases(); err != nil {
		return err
	}
	if err = core.PrepareSQLDatabases(); err != nil {
		return err
	}
	if err = core.PrepareCompositor(); err != nil {
		return err
	}
	if err = core.PrepareCounter(); err != nil {
		return err
	}
	if err = core.PrepareArchiver(); err != nil {
		return err
	}
	if err = core.PrepareAuth(); err != nil {
		return err
	}
	core.PrepareThrottleBucketStore(time.Minute, 10*time.Minute)

	m := metrics.New("invoice")
	router := core.PrepareInvoiceRouter(m)
	core.PrepareScheduler(m)
	if err = core.PrepareUDSService(invoicesvc.AdminCommands(core.Generator, core.ResolvedFont.Name)); err != nil {
		return err
	}
	core.PrepareWebService(router)

	if err = core.StartServices(); err != nil {
		core.StopServices()
		return err
	}
	log.Printf("[INFO] %s listening on %s", core.AppName, core.Listen)

	<-rootCtx.Done()
	err = core.WaitServicesDone()
	log.Printf("[INFO] %s stopped", core.AppName)
	return err
}

func resolveAppRoot(flagRoot string) (string, error) {
	if flagRoot != "" {
		return filepath.Abs(flagRoot)
	}
	if env := os.Getenv("INVOICE_APP_ROOT"); env != "" {
		return filepath.Abs(env)
	}
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}
