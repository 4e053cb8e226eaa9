// main wires the warranty engine: stores, event bus, notification channels,
// integrations, scheduler and the HTTP API. Business logic lives in the
// internal packages; this file only assembles them.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"aftersales/internal/auth"
	"aftersales/internal/dedupe"
	"aftersales/internal/event"
	"aftersales/internal/integration"
	integrationmetrics "aftersales/internal/integration/metrics"
	"aftersales/internal/notify"
	"aftersales/internal/notify/channels/dashboard"
	"aftersales/internal/notify/channels/email"
	"aftersales/internal/notify/channels/sms"
	notifymetrics "aftersales/internal/notify/metrics"
	"aftersales/internal/platform/config"
	"aftersales/internal/platform/httpserver"
	"aftersales/internal/platform/logger"
	platformredis "aftersales/internal/platform/redis"
	"aftersales/internal/report"
	"aftersales/internal/retention"
	"aftersales/internal/scheduler"
	schedulermetrics "aftersales/internal/scheduler/metrics"
	httpapi "aftersales/internal/transport/http"
	"aftersales/internal/warranty"
	warrantymetrics "aftersales/internal/warranty/metrics"
	"aftersales/internal/warranty/service"
	warrantymem "aftersales/internal/warranty/store/memory"
	warrantypg "aftersales/internal/warranty/store/postgres"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: PostgreSQL when a DSN is configured, in-memory otherwise.
	var (
		warrantyStore  warranty.Store
		dashboardStore dashboard.Store
		reportStore    report.Store
	)
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("opening postgres failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("postgres ping failed", "error", err)
			os.Exit(1)
		}
		warrantyStore = warrantypg.New(db)
		dashboardStore = dashboard.NewPostgresStore(db)
		reportStore = report.NewPostgresStore(db)
	} else {
		log.Warn("no postgres DSN configured, using in-memory stores")
		warrantyStore = warrantymem.New()
		dashboardStore = dashboard.NewMemoryStore()
		reportStore = report.NewMemoryStore()
	}

	// Dedupe: Redis when configured, bounded in-memory otherwise.
	var deduper interface {
		Seen(ctx context.Context, key string, ttl time.Duration) (bool, error)
	}
	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		deduper = dedupe.NewRedis(redisClient.Client)
	} else {
		deduper = dedupe.NewMemory(10000)
	}

	bus := event.New(log, event.WithAsync())

	// Notification channels.
	var channels []notify.Channel
	if cfg.EmailFrom != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			log.Error("loading AWS config failed", "error", err)
			os.Exit(1)
		}
		emailChannel, err := email.New(awsCfg, cfg.EmailFrom)
		if err != nil {
			log.Error("email channel setup failed", "error", err)
			os.Exit(1)
		}
		channels = append(channels, emailChannel)
	}
	if cfg.SMSAPIURL != "" {
		smsChannel, err := sms.New(nil, cfg.SMSAPIURL, cfg.SMSAPIKey, cfg.SMSLineNumber)
		if err != nil {
			log.Error("sms channel setup failed", "error", err)
			os.Exit(1)
		}
		channels = append(channels, smsChannel)
	}
	channels = append(channels, dashboard.New(dashboardStore))

	directory := notify.NewMemoryDirectory()
	attempts := notify.NewMemoryAttemptStore(10000)

	notifySettings := notify.DefaultSettings()
	notifySettings.AdminEmail = cfg.AdminEmail
	notifySettings.NotifyAdmin = cfg.AdminEmail != ""

	dispatcher, err := notify.New(channels, directory, deduper, attempts, notifySettings, log,
		notify.WithMetrics(notifymetrics.New()))
	if err != nil {
		log.Error("dispatcher setup failed", "error", err)
		os.Exit(1)
	}
	bus.Subscribe("notifications", dispatcher.Handle)

	// External integrations, enabled by configuration.
	refs := integration.NewMemoryRefStore()
	var integrations []integration.Integration
	if cfg.CRMAPIURL != "" {
		crm, err := integration.NewCRM(nil, cfg.CRMAPIURL, cfg.CRMAPIKey, refs)
		if err != nil {
			log.Error("crm integration setup failed", "error", err)
			os.Exit(1)
		}
		integrations = append(integrations, crm)
	}
	if cfg.TicketingAPIURL != "" {
		ticketing, err := integration.NewTicketing(nil, cfg.TicketingAPIURL, cfg.TicketingAPIKey,
			cfg.TicketingPriority, cfg.TicketingAutoAssign)
		if err != nil {
			log.Error("ticketing integration setup failed", "error", err)
			os.Exit(1)
		}
		integrations = append(integrations, ticketing)
	}
	if cfg.AccountingAPIURL != "" {
		accounting, err := integration.NewAccounting(nil, cfg.AccountingAPIURL, cfg.AccountingAPIKey)
		if err != nil {
			log.Error("accounting integration setup failed", "error", err)
			os.Exit(1)
		}
		integrations = append(integrations, accounting)
	}
	var connections httpapi.ConnectionChecker
	if len(integrations) > 0 {
		fanout := integration.NewFanout(integrations, refs, log,
			integration.WithMetrics(integrationmetrics.New()))
		bus.Subscribe("integrations", fanout.Handle)
		connections = fanout
	}

	// Lifecycle engine.
	lifecycle, err := service.New(warrantyStore, warranty.DefaultSettings(), bus, deduper, log,
		service.WithMetrics(warrantymetrics.New()))
	if err != nil {
		log.Error("lifecycle service setup failed", "error", err)
		os.Exit(1)
	}

	// Reporting and retention.
	reportSettings := report.DefaultSettings()
	reportSettings.Recipients = cfg.ReportRecipients
	var reportEmail notify.Channel
	for _, ch := range channels {
		if ch.Type() == notify.ChannelEmail {
			reportEmail = ch
			break
		}
	}
	reporter, err := report.New(warrantyStore, attempts, reportStore, reportEmail, reportSettings, log)
	if err != nil {
		log.Error("report service setup failed", "error", err)
		os.Exit(1)
	}
	cleaner := retention.New(dashboardStore, attempts, reportStore, retention.DefaultSettings(), log)

	sched, err := scheduler.New(scheduler.NewClock(), log, []scheduler.Job{
		{
			Name:  "expiry-sweep",
			Every: cfg.ExpirySweepInterval,
			Run: func(ctx context.Context, now time.Time) error {
				_, err := lifecycle.SweepExpirations(ctx, now)
				return err
			},
		},
		{
			Name:  "reminder-sweep",
			Every: cfg.ReminderSweepInterval,
			Run: func(ctx context.Context, now time.Time) error {
				_, err := lifecycle.SweepReminders(ctx, now)
				return err
			},
		},
		{
			Name:  "periodic-report",
			Every: cfg.ReportInterval,
			Run:   reporter.Run,
		},
		{
			Name:  "retention-cleanup",
			Every: cfg.RetentionInterval,
			Run:   cleaner.Run,
		},
	}, scheduler.WithMetrics(schedulermetrics.New()))
	if err != nil {
		log.Error("scheduler setup failed", "error", err)
		os.Exit(1)
	}

	// HTTP API.
	jwtService := auth.NewJWTService(cfg.JWTSigningKey, "aftersales", "aftersales-api")
	router := httpapi.NewRouter(
		httpapi.NewWarrantyHandler(lifecycle, log),
		httpapi.NewAdminHandler(reporter, reportStore, connections, log),
		jwtService,
		log,
	)
	srv := httpserver.New(cfg.Addr, router)

	sched.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting aftersales server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
	}

	sched.Wait()
	bus.Close()
	log.Info("aftersales server stopped")
}
