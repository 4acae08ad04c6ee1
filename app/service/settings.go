package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-topups/app/factory"
	"github.com/vibast-solutions/ms-go-topups/app/repository"
	"github.com/vibast-solutions/ms-go-topups/config"
)

type settingsRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
}

// Settings reads runtime configuration from the settings table and falls back
// to the process configuration for keys that are unset or unparsable.
type Settings struct {
	repo     settingsRepository
	fallback config.TopUpsConfig
	logger   logrus.FieldLogger
}

func NewSettings(repo settingsRepository, fallback config.TopUpsConfig) *Settings {
	return &Settings{
		repo:     repo,
		fallback: fallback,
		logger:   factory.NewModuleLogger("settings"),
	}
}

func (s *Settings) TopUpEnabled(ctx context.Context) (bool, error) {
	raw, ok, err := s.repo.Get(ctx, repository.SettingTopUpEnabled)
	if err != nil {
		return false, err
	}
	if !ok {
		return s.fallback.Enabled, nil
	}

	enabled, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		s.invalid(repository.SettingTopUpEnabled, raw)
		return s.fallback.Enabled, nil
	}
	return enabled, nil
}

func (s *Settings) CurrencyIdentifier(ctx context.Context) (string, error) {
	raw, ok, err := s.repo.Get(ctx, repository.SettingCurrencyIdentifier)
	if err != nil {
		return "", err
	}
	currency := strings.ToUpper(strings.TrimSpace(raw))
	if !ok || currency == "" {
		return s.fallback.Currency, nil
	}
	return currency, nil
}

func (s *Settings) MaxAccountBalance(ctx context.Context) (decimal.Decimal, error) {
	raw, ok, err := s.repo.Get(ctx, repository.SettingMaxAccountBalance)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return s.fallback.MaxAccountBalance, nil
	}

	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || value.IsNegative() {
		s.invalid(repository.SettingMaxAccountBalance, raw)
		return s.fallback.MaxAccountBalance, nil
	}
	return value, nil
}

func (s *Settings) invalid(key, raw string) {
	s.logger.WithFields(logrus.Fields{
		"key":   key,
		"value": raw,
	}).Warn("Invalid setting value, using configured default")
}
