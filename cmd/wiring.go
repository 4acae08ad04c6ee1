package cmd

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-topups/app/ledger"
	"github.com/vibast-solutions/ms-go-topups/app/provider"
	"github.com/vibast-solutions/ms-go-topups/app/repository"
	"github.com/vibast-solutions/ms-go-topups/app/service"
	"github.com/vibast-solutions/ms-go-topups/config"
)

type dependencies struct {
	cfg             *config.Config
	settings        *service.Settings
	gateway         *provider.SumUpProvider
	checkoutService *service.CheckoutService
}

func mustCreateCheckoutService() (*dependencies, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	dsn, err := normalizeMySQLDSN(cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid MYSQL_DSN")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	transactor := repository.NewTransactor(db)
	checkoutRepo := repository.NewCheckoutRepository(db)
	eventRepo := repository.NewCheckoutEventRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	settings := service.NewSettings(settingsRepo, cfg.TopUps)
	booker := ledger.NewBooker(transactor, accountRepo, orderRepo, settings)

	sumupProvider := provider.NewSumUpProvider(provider.SumUpConfig{
		APIURL:               cfg.SumUp.APIURL,
		AuthURL:              cfg.SumUp.AuthURL,
		ClientID:             cfg.SumUp.ClientID,
		ClientSecret:         cfg.SumUp.ClientSecret,
		HTTPTimeout:          cfg.SumUp.HTTPTimeout,
		AuthRefreshThreshold: cfg.SumUp.AuthRefreshThreshold,
	})

	checkoutService := service.NewCheckoutService(
		transactor,
		checkoutRepo,
		eventRepo,
		accountRepo,
		productRepo,
		booker,
		sumupProvider,
		settings,
		cfg,
	)

	cleanup := func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return &dependencies{
		cfg:             cfg,
		settings:        settings,
		gateway:         sumupProvider,
		checkoutService: checkoutService,
	}, cleanup
}

// normalizeMySQLDSN forces DATETIME columns to scan into UTC time.Time values.
func normalizeMySQLDSN(raw string) (string, error) {
	dsnCfg, err := mysql.ParseDSN(raw)
	if err != nil {
		return "", err
	}
	dsnCfg.ParseTime = true
	dsnCfg.Loc = time.UTC
	return dsnCfg.FormatDSN(), nil
}

// loginToGateway fetches the first gateway token when top-ups are enabled.
// A failure is logged only; requests retry the login lazily.
func loginToGateway(ctx context.Context, deps *dependencies) {
	enabled, err := deps.settings.TopUpEnabled(ctx)
	if err != nil {
		logrus.WithError(err).Warn("Failed to read top-up setting")
		return
	}
	if !enabled {
		return
	}
	if err := deps.gateway.Login(ctx); err != nil {
		logrus.WithError(err).Warn("SumUp login failed")
		return
	}
	logrus.Info("SumUp login succeeded")
}
