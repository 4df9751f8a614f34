package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-lotes/internal/domain"
	"github.com/jhoicas/inventario-lotes/pkg/logger"
)

// RetryPolicy reintento acotado con backoff exponencial para errores Busy o planes FEFO obsoletos.
// Siempre se reintenta la operación completa, nunca desde la mitad.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy 3 intentos, 20ms inicial, tope 500ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 20 * time.Millisecond, MaxDelay: 500 * time.Millisecond}
}

// Do ejecuta fn y la repite mientras el error sea reintentable y queden intentos.
func (p RetryPolicy) Do(ctx context.Context, log *logger.Logger, op string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := p.BaseDelay
	var err error
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil || !domain.IsRetryable(err) || attempt >= attempts {
			return err
		}
		log.WithOperation(op, "").Warn().Err(err).Int("intento", attempt).Dur("espera", delay).Msg("operación de inventario reintentable")
		if delay > 0 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}
