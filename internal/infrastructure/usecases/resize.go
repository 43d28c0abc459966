package usecases

import (
	"context"
	"fmt"

	"github.com/sophialabs/scopecore/internal/domain/events"
	"github.com/sophialabs/scopecore/internal/domain/scope"
	"github.com/sophialabs/scopecore/internal/infrastructure/ports"
)

// ResizeUseCase reallocates the channel buffers on request. The size holds
// until the display settings next force a resize.
type ResizeUseCase struct {
	scope   *scope.Scope
	metrics ports.Metrics
	clock   ports.Clock
	logger  ports.Logger
	events  *events.Log
}

// NewResizeUseCase creates a new use case.
func NewResizeUseCase(sc *scope.Scope, metrics ports.Metrics, clock ports.Clock, logger ports.Logger, eventLog *events.Log) *ResizeUseCase {
	return &ResizeUseCase{scope: sc, metrics: metrics, clock: clock, logger: logger, events: eventLog}
}

// Execute resizes to n slots. n must be positive.
func (uc *ResizeUseCase) Execute(_ context.Context, n int) (scope.Status, error) {
	if err := uc.scope.Resize(n); err != nil {
		return scope.Status{}, err
	}
	uc.metrics.Resized()
	uc.logger.Info("buffers resized", "history_size", n)
	if uc.events != nil {
		uc.events.Record(events.Event{
			Timestamp: uc.clock.Now(),
			Kind:      events.KindResize,
			Channel:   -1,
			Detail:    fmt.Sprintf("history size %d", n),
		})
	}
	return uc.scope.Status(), nil
}
