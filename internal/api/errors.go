package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/joeblew999/plat-map/internal/provider"
	"github.com/joeblew999/plat-map/internal/service"
	"github.com/joeblew999/plat-map/internal/universal"
)

// problem maps a map error to its HTTP status.
func problem(err error) error {
	msg := err.Error()
	switch {
	case errors.Is(err, universal.ErrNotInitialized), errors.Is(err, provider.ErrNotReady):
		return huma.Error503ServiceUnavailable(msg)
	case errors.Is(err, service.ErrNotFound):
		return huma.Error404NotFound(msg)
	case errors.Is(err, service.ErrDuplicateID), errors.Is(err, service.ErrDestroyed):
		return huma.Error409Conflict(msg)
	case errors.Is(err, service.ErrValidation):
		return huma.Error422UnprocessableEntity(msg)
	case errors.Is(err, service.ErrConfiguration),
		errors.Is(err, service.ErrUnsupportedSourceType),
		errors.Is(err, service.ErrUnsupportedLayerType):
		return huma.Error400BadRequest(msg)
	case errors.Is(err, service.ErrLoad):
		return huma.Error502BadGateway(msg)
	case errors.Is(err, context.DeadlineExceeded):
		return huma.Error504GatewayTimeout(msg)
	}
	log.Error().Err(err).Msg("Unhandled API error")
	return huma.Error500InternalServerError("internal error", err)
}
