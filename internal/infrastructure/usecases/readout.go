package usecases

import (
	"context"
	"fmt"

	"github.com/sophialabs/scopecore/internal/domain/scope"
	"github.com/sophialabs/scopecore/internal/infrastructure/ports"
	"github.com/sophialabs/scopecore/internal/infrastructure/services"
)

// ReadoutUseCase renders the last value of every channel through the
// profile's readout template.
type ReadoutUseCase struct {
	scope *scope.Scope
	store *services.ProfileStore
}

// NewReadoutUseCase creates a new use case.
func NewReadoutUseCase(sc *scope.Scope, store *services.ProfileStore) *ReadoutUseCase {
	return &ReadoutUseCase{scope: sc, store: store}
}

// Channels returns the readout data without rendering it.
func (uc *ReadoutUseCase) Channels() []ports.ReadoutChannel {
	st := uc.scope.Status()
	profile := uc.store.Load()
	out := make([]ports.ReadoutChannel, len(st.Channels))
	for i, cs := range st.Channels {
		out[i] = ports.ReadoutChannel{
			Index:     cs.Channel,
			Name:      channelName(profile, cs.Channel),
			Active:    cs.Settings.Active,
			Value:     cs.Last,
			HasValue:  cs.HasLast,
			Triggered: cs.Trigger.Found,
			Locked:    cs.Locked,
		}
	}
	return out
}

// Execute renders the readout. It is empty when the profile has no
// readout template.
func (uc *ReadoutUseCase) Execute(_ context.Context) (string, error) {
	profile := uc.store.Load()
	if profile == nil || profile.Readout == nil {
		return "", nil
	}
	out, err := profile.Readout.Render(uc.Channels())
	if err != nil {
		return "", fmt.Errorf("failed to render readout: %w", err)
	}
	return out, nil
}
