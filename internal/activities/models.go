package activities

import (
	"context"
	"errors"

	"go.temporal.io/sdk/temporal"

	"github.com/mfateev/toolchat/internal/models"
)

// ListModels returns the model names served by cfg's provider.
func (a *SessionActivities) ListModels(ctx context.Context, cfg models.ModelConfig) ([]string, error) {
	c, err := a.cacheFor(ctx, cfg)
	if err != nil {
		return nil, wrapTransportError(err)
	}
	names, err := c.Available(ctx)
	if err != nil {
		return nil, wrapTransportError(err)
	}
	return names, nil
}

// wrapTransportError converts a classified model error into an application
// error so the workflow can branch on its type without parsing messages.
func wrapTransportError(err error) error {
	var te *models.TransportError
	if !errors.As(err, &te) {
		return err
	}
	if te.Retryable {
		return temporal.NewApplicationErrorWithCause(te.Message, te.Type.String(), err)
	}
	return temporal.NewNonRetryableApplicationError(te.Message, te.Type.String(), err)
}
