package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/sophialabs/scopecore/internal/domain/settings"
	"github.com/sophialabs/scopecore/internal/infrastructure/ports"
)

// LoadSettingsUseCase reads the settings document and applies it. A missing
// document falls back to the defaults.
type LoadSettingsUseCase struct {
	repo   settings.Repository
	apply  *ApplySettingsUseCase
	logger ports.Logger
}

// NewLoadSettingsUseCase creates a new use case.
func NewLoadSettingsUseCase(repo settings.Repository, apply *ApplySettingsUseCase, logger ports.Logger) *LoadSettingsUseCase {
	return &LoadSettingsUseCase{repo: repo, apply: apply, logger: logger}
}

// Execute loads and applies the document without saving it back.
func (uc *LoadSettingsUseCase) Execute(ctx context.Context) (ApplyResult, error) {
	s, err := uc.repo.Load(ctx)
	switch {
	case errors.Is(err, settings.ErrNotFound):
		uc.logger.Info("no settings document, using defaults")
		s = settings.Default()
	case err != nil:
		return ApplyResult{}, fmt.Errorf("failed to load settings: %w", err)
	}

	res, err := uc.apply.Execute(ctx, s, false)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("failed to apply settings: %w", err)
	}
	uc.logger.Info("settings applied", "channels", len(res.Settings.Channels), "resized", res.Resized)
	return res, nil
}
