package app

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/phenrril/comprarapida/internal/adapters/httpserver"
	"github.com/phenrril/comprarapida/internal/adapters/repo/embedded"
	"github.com/phenrril/comprarapida/internal/adapters/repo/relational"
	"github.com/phenrril/comprarapida/internal/adapters/storage/memkv"
	"github.com/phenrril/comprarapida/internal/adapters/storage/sqlitekv"
	"github.com/phenrril/comprarapida/internal/config"
	"github.com/phenrril/comprarapida/internal/format"
	"github.com/phenrril/comprarapida/internal/logging"
	"github.com/phenrril/comprarapida/internal/usecase"
)

// MemoryPath selects the in-process namespace for the embedded backend.
const MemoryPath = "memory"

const embeddedNamespace = "compra-rapida"

type App struct {
	Config      *config.Config
	DB          *gorm.DB
	Customers   *usecase.CustomerUC
	Purchases   *usecase.PurchaseUC
	OAuthConfig *oauth2.Config

	closers []func() error
}

// NewApp opens the configured backend. The relational schema is created by
// Migrate, not here.
func NewApp(cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	switch cfg.Store.Backend {
	case config.BackendEmbedded:
		ns, err := a.openNamespace(cfg.Store.EmbeddedPath)
		if err != nil {
			return nil, err
		}
		db := embedded.Open(ns)
		a.Customers = &usecase.CustomerUC{Customers: embedded.NewCustomerRepo(db)}
		a.Purchases = &usecase.PurchaseUC{Purchases: embedded.NewPurchaseRepo(db), Reports: embedded.NewStatsRepo(db)}
		zlog.Info().Str("backend", cfg.Store.Backend).Str("path", cfg.Store.EmbeddedPath).Msg("store ready")
	case config.BackendRelational:
		gl := logging.NewGormLogger(zlog.Logger, logging.GormLevel(zerolog.GlobalLevel()))
		db, err := relational.Open(cfg.DB.Driver, cfg.DatabaseDSN(), gl)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
		a.DB = db
		a.Customers = &usecase.CustomerUC{Customers: relational.NewCustomerRepo(db)}
		a.Purchases = &usecase.PurchaseUC{Purchases: relational.NewPurchaseRepo(db), Reports: relational.NewStatsRepo(db)}
		zlog.Info().Str("backend", cfg.Store.Backend).Str("driver", cfg.DB.Driver).Str("dsn", cfg.RedactedDSN()).Msg("store ready")
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Store.Backend)
	}

	if cfg.Auth.OAuthEnabled() {
		a.OAuthConfig = &oauth2.Config{
			ClientID:     cfg.Auth.GoogleClientID,
			ClientSecret: cfg.Auth.GoogleClientSecret,
			RedirectURL:  cfg.Auth.BaseURL + "/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}
	} else {
		zlog.Warn().Msg("google login not configured, API is open")
	}
	return a, nil
}

func (a *App) openNamespace(path string) (embedded.Namespace, error) {
	if path == MemoryPath {
		return memkv.New(), nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	ns, err := sqlitekv.Open(path, embeddedNamespace)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, ns.Close)
	return ns, nil
}

// Migrate creates the relational schema. It is a no-op for the embedded backend.
func (a *App) Migrate() error {
	if a.DB == nil {
		return nil
	}
	return relational.Migrate(a.DB)
}

func (a *App) HTTPHandler() http.Handler {
	proxies, err := a.Config.Server.ProxyNets()
	if err != nil {
		zlog.Warn().Err(err).Msg("ignoring trusted proxies")
		proxies = nil
	}
	return httpserver.New(httpserver.Options{
		Customers:      a.Customers,
		Purchases:      a.Purchases,
		Locale:         format.LocaleFor(a.Config.App.Locale),
		OAuth:          a.OAuthConfig,
		SessionKey:     a.Config.Auth.SessionKey,
		AllowedEmails:  a.Config.Auth.AllowedEmails,
		SecureCookies:  a.Config.IsProduction(),
		RateLimitRPS:   a.Config.Server.RateLimitRPS,
		RateLimitBurst: a.Config.Server.RateLimitBurst,
		TrustedProxies: proxies,
	})
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
