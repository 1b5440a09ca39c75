package execution

import (
	"time"

	"github.com/rxtech-lab/argo-execution/internal/logger"
	"github.com/rxtech-lab/argo-execution/internal/metrics"
	"github.com/rxtech-lab/argo-execution/internal/types"
	"github.com/rxtech-lab/argo-execution/pkg/errors"
	"go.uber.org/zap"
)

// SignalGate drops expired and malformed signals before they reach the risk gate.
type SignalGate struct {
	now     func() time.Time
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewSignalGate(log *logger.Logger, m *metrics.Metrics, now func() time.Time) *SignalGate {
	if now == nil {
		now = time.Now
	}

	return &SignalGate{
		now:     now,
		logger:  log.Named("signal"),
		metrics: m,
	}
}

// Admit returns an error coded ErrCodeSignalExpired or ErrCodeInvalidSignal when the signal
// must be dropped. Rejections are logged and counted; they are not failures of the engine.
func (g *SignalGate) Admit(signal types.Signal) error {
	if signal.IsExpired(g.now()) {
		g.logger.Warn("Signal expired",
			zap.String("signal_id", signal.ID),
			zap.String("strategy", signal.StrategyID),
			zap.Time("expires_at", signal.ExpiresAt),
		)
		g.metrics.RecordSignal(signal.StrategyID, metrics.SignalExpired)

		return errors.Newf(errors.ErrCodeSignalExpired, "signal %s expired at %s", signal.ID, signal.ExpiresAt.Format(time.RFC3339))
	}

	if err := signal.Validate(); err != nil {
		g.logger.Warn("Signal invalid",
			zap.String("signal_id", signal.ID),
			zap.String("strategy", signal.StrategyID),
			zap.Error(err),
		)
		g.metrics.RecordSignal(signal.StrategyID, metrics.SignalInvalid)

		return err
	}

	return nil
}
