package conf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/zeptools/gw-invoice/apis/mainbackend"
	"github.com/zeptools/gw-invoice/archive"
	"github.com/zeptools/gw-invoice/counter"
	"github.com/zeptools/gw-invoice/db"
	"github.com/zeptools/gw-invoice/db/kvdb"
	"github.com/zeptools/gw-invoice/db/kvdb/impls/redis"
	"github.com/zeptools/gw-invoice/db/sqldb"
	"github.com/zeptools/gw-invoice/db/sqldb/impls/mysql"
	"github.com/zeptools/gw-invoice/db/sqldb/impls/pgsql"
	"github.com/zeptools/gw-invoice/db/sqldb/impls/sqlite"
	"github.com/zeptools/gw-invoice/invoicesvc"
	"github.com/zeptools/gw-invoice/layout"
	"github.com/zeptools/gw-invoice/pdfs"
	"github.com/zeptools/gw-invoice/schedjobs"
	"github.com/zeptools/gw-invoice/sec"
	"github.com/zeptools/gw-invoice/svc"
	"github.com/zeptools/gw-invoice/throttle"
	"github.com/zeptools/gw-invoice/uds"
	"github.com/zeptools/gw-invoice/web"
)

// TemplateConf locates the background image every invoice is drawn on
type TemplateConf struct {
	Dir     string `json:"dir"`     // relative to appRoot. default "templates"
	Name    string `json:"name"`    // default "invoice_template.png"
	Preload bool   `json:"preload"` // decode once at startup instead of per request
}

// EncoderConf tunes the raster -> PDF step
type EncoderConf struct {
	ImageFormat string  `json:"image_format"` // "jpg" (default) | "png"
	JPEGQuality int     `json:"jpeg_quality"` // default 75
	DPI         float64 `json:"dpi"`          // default 72
}

// Core - common config, loaded from config/.core.json
type Core struct {
	AppName         string              `json:"app_name"`
	Listen          string              `json:"listen"`           // HTTP Server Listen IP:PORT Address
	AdminSocket     string              `json:"admin_socket"`     // unix socket for the admin console. empty = off
	ShutdownTimeout int                 `json:"shutdown_timeout"` // seconds. default 15
	Template        TemplateConf        `json:"template"`
	Font            pdfs.FontConf       `json:"font"`
	LayoutFile      string              `json:"layout_file"` // optional YAML. relative to appRoot
	Encoder         EncoderConf         `json:"encoder"`
	Counter         counter.Conf        `json:"counter"`
	Archive         archive.Conf        `json:"archive"`
	Auth            sec.AuthConf        `json:"auth"`
	Throttle        throttle.BucketConf `json:"throttle"`

	AppRoot             string                  `json:"-"` // Filled from compiled paths
	RootCtx             context.Context         `json:"-"` // Global Context with RootCancel
	RootCancel          context.CancelFunc      `json:"-"` // CancelFunc for RootCtx
	BackendHttpClient   *http.Client            `json:"-"` // for outgoing requests e.g. S3
	KVDBConfs           map[string]*kvdb.Conf   `json:"-"` // loadKVDBConfs
	BackendKVDBClients  map[string]kvdb.Client  `json:"-"` // PrepareKVDatabases
	SQLDBConfs          map[string]*sqldb.Conf  `json:"-"` // loadSQLDBConfs
	BackendSQLDBClients map[string]sqldb.Client `json:"-"` // PrepareSQLDatabases
	ResolvedFont        *pdfs.Font              `json:"-"` // PrepareCompositor
	Compositor          *pdfs.Compositor        `json:"-"` // PrepareCompositor
	InvoiceCounter      counter.Counter         `json:"-"` // PrepareCounter
	Archiver            *archive.Archiver       `json:"-"` // PrepareArchiver. nil = off
	BearerAuth          *sec.BearerAuth         `json:"-"` // PrepareAuth. nil = off
	AuthServer          *mainbackend.Client     `json:"-"` // PrepareAuth. nil = local keys only
	Scheduler           *schedjobs.Scheduler    `json:"-"` // PrepareScheduler
	ThrottleBucketStore *throttle.BucketStore   `json:"-"` // PrepareThrottleBucketStore. nil = off
	Generator           *invoicesvc.Generator   `json:"-"` // PrepareInvoiceRouter
	UDSService          *uds.Service            `json:"-"` // PrepareUDSService
	WebService          *web.Service            `json:"-"` // PrepareWebService

	services []svc.Service // Services to Manage
	done     chan error
}

// BaseInit - 1st step for initialization
// 1. set AppRoot
// 2. load config/.core.json file
// 3. prepare base fields
// 4. Start ShutdownSignalListener
func (c *Core) BaseInit(appRoot string, rootCtx context.Context, rootCancel context.CancelFunc) error {
	c.AppRoot = appRoot
	if err := c.readConfigJSON(".core.json", c); err != nil {
		return err
	}
	c.RootCtx = rootCtx
	c.RootCancel = rootCancel
	c.prepareDefaultFeatures()
	c.startShutdownSignalListener()
	return nil
}

func (c *Core) prepareDefaultFeatures() {
	if c.AppName == "" {
		c.AppName = "gw-invoice"
	}
	if c.Listen == "" {
		c.Listen = ":8000"
	}
	c.BackendHttpClient = &http.Client{Timeout: 30 * time.Second}
}

func (c *Core) configPath(name string) string {
	return filepath.Join(c.AppRoot, "config", name)
}

// AppPath resolves p against AppRoot unless it is absolute
func (c *Core) AppPath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.AppRoot, p)
}

func (c *Core) readConfigJSON(name string, v any) error {
	confBytes, err := os.ReadFile(c.configPath(name)) // ([]byte, error)
	if err != nil {
		return err
	}
	if err = json.Unmarshal(confBytes, v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (c *Core) AddService(s svc.Service) {
	log.Printf("[INFO] adding service: %s", s.Name())
	c.services = append(c.services, s)
	log.Printf("[INFO] total services: %d", len(c.services))
}

func (c *Core) StartServices() error {
	c.done = make(chan error, len(c.services))
	for _, s := range c.services {
		err := s.Start()
		if err != nil {
			return fmt.Errorf("start %s: %w", s.Name(), err)
		}
		go func(s svc.Service) {
			err := <-s.Done()
			if err != nil {
				log.Printf("[ERROR] %s stopped: %v", s.Name(), err)
				c.RootCancel() // one dead service takes the app down
			}
			c.done <- err
		}(s) // pass the loop var to the param. otherwise, they are captured inside goroutine lazily
	}
	return nil
}

// WaitServicesDone blocks until every service has reported. The first error wins.
func (c *Core) WaitServicesDone() error {
	var first error
	for i := 0; i < len(c.services); i++ {
		if err := <-c.done; err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (c *Core) StopServices() {
	for _, s := range c.services {
		s.Stop()
	}
}

var once sync.Once

func (c *Core) startShutdownSignalListener() {
	once.Do(func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigs
			log.Printf("[INFO] got signal [%s]. shutting down app [%s] ...", sig, c.AppName)
			c.RootCancel() // broadcast to all child services via Context.Done()
		}()
	})
	log.Printf("[INFO][CORE] shutdown signal listener started")
}

// PrepareKVDatabases loads config/.kv-databases.json if present: {"<name>": kvdb.Conf}
func (c *Core) PrepareKVDatabases() error {
	c.KVDBConfs = make(map[string]*kvdb.Conf)
	c.BackendKVDBClients = make(map[string]kvdb.Client)
	err := c.readConfigJSON(".kv-databases.json", &c.KVDBConfs)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	// Registering Supported Implementations
	redis.Register()
	for dbName, kvConf := range c.KVDBConfs {
		client, err := kvdb.New(kvConf.Type, kvConf)
		if err != nil {
			return fmt.Errorf("kv database %q: %w", dbName, err)
		}
		if err = client.Init(); err != nil {
			return fmt.Errorf("kv database %q: %w", dbName, err)
		}
		c.BackendKVDBClients[dbName] = client
	}
	return nil
}

// PrepareSQLDatabases loads config/.sql-databases.json if present: {"<name>": sqldb.Conf}
func (c *Core) PrepareSQLDatabases() error {
	c.SQLDBConfs = make(map[string]*sqldb.Conf)
	c.BackendSQLDBClients = make(map[string]sqldb.Client)
	err := c.readConfigJSON(".sql-databases.json", &c.SQLDBConfs)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	// Registering Supported Implementations
	pgsql.Register()
	mysql.Register()
	sqlite.Register()
	for dbName, sqlDBConf := range c.SQLDBConfs {
		if sqlDBConf.Type == sqlite.DBType && sqlDBConf.DSN == "" {
			sqlDBConf.DB = c.AppPath(sqlDBConf.DB)
		}
		dbClient, err := sqldb.New(sqlDBConf.Type, sqlDBConf)
		if err != nil {
			return fmt.Errorf("sql database %q: %w", dbName, err)
		}
		if err = dbClient.Init(); err != nil {
			return fmt.Errorf("sql database %q: %w", dbName, err)
		}
		c.BackendSQLDBClients[dbName] = dbClient
	}
	return nil
}

// PrepareCompositor resolves font and layout once and builds the compositor
func (c *Core) PrepareCompositor() error {
	l := layout.Default()
	if c.LayoutFile != "" {
		var err error
		if l, err = layout.Load(c.AppPath(c.LayoutFile)); err != nil {
			return err
		}
		log.Printf("[INFO] layout loaded from %s", c.LayoutFile)
	}

	fontConf := c.Font
	fontConf.Path = c.AppPath(fontConf.Path)
	font, err := pdfs.ResolveFont(fontConf)
	if err != nil {
		return err
	}
	c.ResolvedFont = font

	dir := c.Template.Dir
	if dir == "" {
		dir = "templates"
	}
	dir = c.AppPath(dir)
	name := c.Template.Name
	if name == "" {
		name = "invoice_template.png"
	}
	var templates pdfs.TemplateSource = pdfs.FileTemplates{Dir: dir}
	if c.Template.Preload {
		mem := pdfs.NewMemoryTemplates()
		if err = mem.Preload(dir, name); err != nil {
			return err
		}
		templates = mem
	}

	c.Compositor = &pdfs.Compositor{
		Layout:       l,
		Font:         font,
		Templates:    templates,
		TemplateName: name,
		Encoder: &pdfs.GofpdfEncoder{
			ImageFormat: c.Encoder.ImageFormat,
			JPEGQuality: c.Encoder.JPEGQuality,
			DPI:         c.Encoder.DPI,
			Producer:    c.AppName,
		},
	}
	log.Printf("[INFO] template %s (preload=%v)", filepath.Join(dir, name), c.Template.Preload)
	return nil
}

// PrepareCounter needs PrepareKVDatabases / PrepareSQLDatabases first when the counter uses them
func (c *Core) PrepareCounter() error {
	ctr, err := counter.Open(c.RootCtx, &c.Counter, counter.Backends{
		AppRoot: c.AppRoot,
		KV:      c.BackendKVDBClients,
		SQL:     c.BackendSQLDBClients,
	})
	if err != nil {
		return err
	}
	c.InvoiceCounter = ctr
	return nil
}

func (c *Core) PrepareArchiver() error {
	a, err := archive.Open(c.RootCtx, &c.Archive, c.AppRoot, c.BackendHttpClient)
	if err != nil {
		return err
	}
	c.Archiver = a
	return nil
}

// PrepareAuth loads local public keys and/or fetches the auth server's JWKS
func (c *Core) PrepareAuth() error {
	if !c.Auth.Enabled() {
		log.Println("[WARN] auth disabled: /generate-invoice/ is open")
		return nil
	}
	keys := sec.NewKeySet()
	if dir := c.Auth.KeyDir(c.AppRoot); dir != "" {
		var err error
		if keys, err = sec.LoadPublicKeySet(dir); err != nil {
			return err
		}
	}
	if c.Auth.AuthServer != "" {
		c.AuthServer = mainbackend.New(c.Auth.AuthServer, c.Auth.ClientID, c.BackendHttpClient)
		ctx, cancel := context.WithTimeout(c.RootCtx, 10*time.Second)
		defer cancel()
		if err := c.AuthServer.RefreshKeys(ctx, keys); err != nil {
			// the refresh job retries; local keys may still serve
			log.Printf("[WARN] %v", err)
		}
	}
	if keys.Len() == 0 {
		return errors.New("auth enabled but no public keys found")
	}
	c.BearerAuth = &sec.BearerAuth{Keys: keys, Audience: c.Auth.Audience}
	return nil
}

func (c *Core) PrepareThrottleBucketStore(cleanupCycle time.Duration, cleanupOlderThan time.Duration) {
	if !c.Throttle.Enabled() {
		return
	}
	c.ThrottleBucketStore = throttle.NewBucketStore(c.RootCtx, &c.Throttle, cleanupCycle, cleanupOlderThan)
	c.AddService(c.ThrottleBucketStore)
}

func (c *Core) PrepareUDSService(commands uds.CommandStore) error {
	if c.AdminSocket == "" {
		return nil
	}
	sockPath := c.AppPath(c.AdminSocket)
	if err := os.MkdirAll(filepath.Dir(sockPath), 0o700); err != nil {
		return fmt.Errorf("admin socket dir: %w", err)
	}
	c.UDSService = uds.NewService(c.RootCtx, sockPath, commands)
	c.AddService(c.UDSService)
	return nil
}

func (c *Core) PrepareWebService(router http.Handler) {
	c.WebService = web.NewService(c.RootCtx, c.Listen, router)
	if c.ShutdownTimeout > 0 {
		c.WebService.ShutdownTimeout = time.Duration(c.ShutdownTimeout) * time.Second
	}
	c.AddService(c.WebService)
}

func (c *Core) ResourceCleanUp() {
	log.Println("[INFO] App Resource Cleaning Up...")
	for name, client := range c.BackendKVDBClients {
		db.CloseClient("kv:"+name, client)
	}
	for name, client := range c.BackendSQLDBClients {
		db.CloseClient(client.Dialect()+":"+name, client)
	}
	log.Println("[INFO] App Resource Cleanup Complete")
}
