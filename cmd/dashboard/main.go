package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jinzhu/copier"
	"github.com/tendant/ce-client/ce"
	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"

	"github.com/tendant/simple-dashboard/pkg/audit"
	auditapi "github.com/tendant/simple-dashboard/pkg/audit/api"
	"github.com/tendant/simple-dashboard/pkg/clientinfo"
	"github.com/tendant/simple-dashboard/pkg/directory"
	"github.com/tendant/simple-dashboard/pkg/impersonate"
	impersonateapi "github.com/tendant/simple-dashboard/pkg/impersonate/api"
	"github.com/tendant/simple-dashboard/pkg/notify"
	"github.com/tendant/simple-dashboard/pkg/ratelimit"
)

type DashboardDbConfig struct {
	Host     string `env:"DASHBOARD_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"DASHBOARD_PG_PORT" env-default:"5432"`
	Database string `env:"DASHBOARD_PG_DATABASE" env-default:"dashboard_db"`
	User     string `env:"DASHBOARD_PG_USER" env-default:"dashboard"`
	Password string `env:"DASHBOARD_PG_PASSWORD" env-default:"pwd"`
}

func (d DashboardDbConfig) toDbConfig() dbutils.DbConfig {
	return dbutils.DbConfig{
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		User:     d.User,
		Password: d.Password,
	}
}

type JwtConfig struct {
	JwtSecret string `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
}

type AuditConfig struct {
	PersistenceType string `env:"AUDIT_PERSISTENCE_TYPE" env-default:"file"`
	DataDir         string `env:"AUDIT_DATA_DIR" env-default:"./data"`
	RetentionCap    int    `env:"AUDIT_RETENTION_CAP" env-default:"1000"`
	EventsURL       string `env:"AUDIT_EVENTS_URL" env-default:""`
}

type SmtpConfig struct {
	Host     string `env:"SMTP_HOST" env-default:""`
	Port     int    `env:"SMTP_PORT" env-default:"587"`
	TLS      bool   `env:"SMTP_TLS" env-default:"false"`
	Username string `env:"SMTP_USERNAME" env-default:""`
	Password string `env:"SMTP_PASSWORD" env-default:""`
	From     string `env:"SMTP_FROM" env-default:""`
	To       string `env:"SECURITY_NOTIFY_TO" env-default:""`
}

type Config struct {
	DashboardDbConfig DashboardDbConfig
	AppConfig         app.AppConfig
	JwtConfig         JwtConfig
	AuditConfig       AuditConfig
	SmtpConfig        SmtpConfig
	IPLookupURL       string `env:"IP_LOOKUP_URL" env-default:""`
	UserDataDir       string `env:"USER_DATA_DIR" env-default:"./data"`
}

func main() {

	config := Config{}
	cleanenv.ReadEnv(&config)

	server := app.DefaultApp()

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	// Audit repository per configured persistence
	repoConfig := audit.RepositoryConfig{DataDir: config.AuditConfig.DataDir}
	if config.AuditConfig.PersistenceType == "postgres" {
		pool, err := dbutils.NewDbPool(context.Background(), config.DashboardDbConfig.toDbConfig())
		if err != nil {
			slog.Error("Failed creating dbpool", "db", config.DashboardDbConfig.Database, "host", config.DashboardDbConfig.Host)
			os.Exit(-1)
		}
		repoConfig.Pool = pool
	}
	auditRepo, err := audit.NewAuditRepository(config.AuditConfig.PersistenceType, repoConfig)
	if err != nil {
		slog.Error("Failed creating audit repository", "err", err)
		os.Exit(-1)
	}

	// Security notifier (noop unless SMTP is configured)
	var notifier notify.Notifier = notify.NoopNotifier{}
	if config.SmtpConfig.Host != "" && config.SmtpConfig.To != "" {
		var smtp notify.SMTPConfig
		copier.Copy(&smtp, &config.SmtpConfig)
		emailNotifier, err := notify.NewEmailNotifier(smtp)
		if err != nil {
			slog.Error("Failed creating email notifier", "err", err)
			os.Exit(-1)
		}
		notifier = emailNotifier
	}

	// Audit service, with durable CloudEvents forwarding when configured
	auditOpts := []audit.ServiceOption{
		audit.WithRetentionCap(config.AuditConfig.RetentionCap),
		audit.WithRecordErrorHandler(func(entry audit.Entry, err error) {
			notifier.Notify(context.Background(), notify.Event{
				Kind:    notify.AuditDeliveryFailed,
				Subject: "Audit append failed",
				Body:    err.Error(),
				Data:    map[string]interface{}{"entry_id": entry.ID.String()},
			})
		}),
	}
	if config.AuditConfig.EventsURL != "" {
		var wg sync.WaitGroup
		eventClient, err := ce.NewEventClient(context.Background(), &wg, config.AuditConfig.EventsURL)
		if err != nil {
			slog.Error("Failed creating event client", "err", err)
			os.Exit(-1)
		}
		sink := audit.NewCloudEventSink(eventClient, "simple-dashboard")
		forwarder := audit.NewForwarder(sink,
			audit.WithFailureHandler(func(entry audit.Entry, err error) {
				notifier.Notify(context.Background(), notify.Event{
					Kind:    notify.AuditDeliveryFailed,
					Subject: "Audit delivery abandoned",
					Body:    err.Error(),
					Data:    map[string]interface{}{"entry_id": entry.ID.String()},
				})
			}),
		)
		defer forwarder.Close()
		auditOpts = append(auditOpts, audit.WithForwarder(forwarder))
	}
	auditService := audit.NewService(auditRepo, auditOpts...)

	// User directory
	userRepo, err := directory.NewFileUserRepository(config.UserDataDir)
	if err != nil {
		slog.Error("Failed creating user repository", "err", err)
		os.Exit(-1)
	}
	directoryService := directory.NewDirectoryService(userRepo)

	// Impersonation service
	impersonateOpts := []impersonate.Option{
		impersonate.WithNotifier(notifier),
	}
	if config.IPLookupURL != "" {
		impersonateOpts = append(impersonateOpts,
			impersonate.WithIPLookup(clientinfo.NewHTTPIPLookup(config.IPLookupURL)))
	}
	impersonateService := impersonate.NewService(auditService, impersonateOpts...)

	impersonateHandle := impersonateapi.NewHandle(impersonateService, directoryService,
		impersonateapi.WithStartGuard(ratelimit.StartGuard(ratelimit.DefaultStartGuardConfig())))
	auditHandle := auditapi.NewHandle(auditService)

	tokenAuth := jwtauth.New("HS256", []byte(config.JwtConfig.JwtSecret), nil)

	server.R.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(tokenAuth))
		r.Use(jwtauth.Authenticator(tokenAuth))
		r.Use(impersonateapi.AdminUserMiddleware)

		impersonateHandle.RegisterRoutes(r)
		auditHandle.RegisterRoutes(r)

		// Host application surface: every mutating request below is
		// instrumented as an impersonated action while a session is active
		r.Route("/dashboard", func(r chi.Router) {
			r.Use(impersonate.RouteTracker(impersonateService))
			r.Use(impersonate.ActionAudit(impersonateService))

			r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
				admin, ok := impersonateapi.AdminFromContext(r.Context())
				if !ok {
					http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
					return
				}
				render.JSON(w, r, impersonateService.EffectiveUser(admin))
			})
		})
	})

	server.Run()

}
