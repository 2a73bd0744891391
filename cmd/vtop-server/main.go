package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"sync"
	"time"
	"vtop-backend/lib/configutil"
	"vtop-backend/lib/scrapers/vtop"
	"vtop-backend/lib/serviceutil"
	"vtop-backend/services/httpapi"
	"vtop-backend/services/llmproxy"
	"vtop-backend/services/session"
	vtopservice "vtop-backend/services/vtop"

	"github.com/gin-gonic/gin"
)

type PortalConfig struct {
	BaseUrl            string  `json:"base_url"`
	RequestsPerSecond  float64 `json:"requests_per_second"`
	InsecureSkipVerify bool    `json:"insecure_skip_verify"`
	CloudflareBypass   bool    `json:"cloudflare_bypass"`
}

type SessionConfig struct {
	TimeoutMinutes       int `json:"timeout_minutes"`
	SweepIntervalMinutes int `json:"sweep_interval_minutes"`
	Capacity             int `json:"capacity"`
}

type ScrapeConfig struct {
	CaptchaAttempts int `json:"captcha_attempts"`
	TimeoutSeconds  int `json:"timeout_seconds"`
}

type Config struct {
	Port int `json:"port"`
	// Database is a sqlite file path, ":memory:", a libsql url or a
	// postgres url.
	Database string        `json:"database"`
	Portal   PortalConfig  `json:"portal"`
	Session  SessionConfig `json:"session"`
	Scrape   ScrapeConfig  `json:"scrape"`
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	err := configutil.LoadDotenv()
	if err != nil {
		serviceutil.Fatal("load .env", err)
	}

	InitTelemetry(ctx, *verbose)

	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}

	records, closeRecords, err := OpenRecordStore(ctx, cfg.Database)
	if err != nil {
		serviceutil.Fatal("open record store", err)
	}
	defer closeRecords()

	sessions, err := session.NewStore(session.Options{
		Timeout:       time.Duration(cfg.Session.TimeoutMinutes) * time.Minute,
		SweepInterval: time.Duration(cfg.Session.SweepIntervalMinutes) * time.Minute,
		Capacity:      cfg.Session.Capacity,
		NewClient: func() (*vtop.Client, error) {
			return vtop.NewClient(vtop.ClientOptions{
				BaseUrl:            cfg.Portal.BaseUrl,
				RequestsPerSecond:  cfg.Portal.RequestsPerSecond,
				InsecureSkipVerify: cfg.Portal.InsecureSkipVerify,
				CloudflareBypass:   cfg.Portal.CloudflareBypass,
			})
		},
	})
	if err != nil {
		serviceutil.Fatal("init session store", err)
	}

	var daemons sync.WaitGroup
	daemons.Add(1)
	go func() {
		defer daemons.Done()
		sessions.Run(ctx)
	}()

	captchaAttempts := vtopservice.DefaultCaptchaAttempts
	if cfg.Scrape.CaptchaAttempts > 0 {
		captchaAttempts = cfg.Scrape.CaptchaAttempts
	}
	service := vtopservice.NewService(vtopservice.Options{
		Sessions:        sessions,
		Records:         records,
		CaptchaAttempts: captchaAttempts,
		ScrapeTimeout:   time.Duration(cfg.Scrape.TimeoutSeconds) * time.Second,
	})

	if !*verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	server := httpapi.NewServer(httpapi.Options{
		Vtop:        service,
		Llm:         llmproxy.NewProxy(llmproxy.Options{}),
		ServiceName: "vtop-server",
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: time.Second * 10,
	}
	err = serviceutil.ServeHttp(ctx, srv, time.Second*30)
	if err != nil {
		serviceutil.Fatal("serve http", err)
	}

	daemons.Wait()
	// the signal context is only done on shutdown, give telemetry a moment
	// to flush.
	shutdownTelemetry(context.Background())
}
