package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segyhp/lending-engine/internal/events"
	"github.com/segyhp/lending-engine/internal/repository"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

func utcNow() time.Time {
	return time.Now().UTC()
}

// wrapStoreError classifies errors of reads made outside WithinTx.
func wrapStoreError(err error) error {
	if err == nil {
		return nil
	}
	var be *customError.BusinessError
	if errors.As(err, &be) {
		return err
	}
	if repository.IsRetryable(err) {
		return customError.WrapRetryable(err)
	}
	return customError.WrapDatabaseError(err)
}

// publish delivers an event after commit. Failures are logged only.
func publish(ctx context.Context, publisher events.Publisher, logger *slog.Logger, eventType string, payload interface{}) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, eventType, payload); err != nil {
		logger.WarnContext(ctx, "event publish failed", "type", eventType, "error", err)
	}
}
