// Package push registers the device's push token with the backend.
//
// Registration is best effort: a denied permission is a quiet state, and a
// failed registration is reported to the caller, which may discard it.
package push

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/harrisonrobin/raigen/pkg/api"
	"github.com/harrisonrobin/raigen/pkg/logging"
	"github.com/harrisonrobin/raigen/pkg/model"
)

// ErrPermissionDenied is available to callers that want to turn NotGranted into an error.
var ErrPermissionDenied = errors.New("notification permission not granted")

// Outcome of one registration attempt.
type Outcome int

const (
	Registered Outcome = iota
	NotGranted
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Registered:
		return "registered"
	case NotGranted:
		return "not_granted"
	default:
		return "failed"
	}
}

// Platform is the host notification service.
type Platform interface {
	// RequestPermission prompts the user if needed and reports whether notifications are allowed.
	RequestPermission(ctx context.Context) (bool, error)
	// DeviceToken returns the push address of this installation.
	DeviceToken(ctx context.Context) (string, error)
}

// TokenRegistrar stores (identity, token) on the backend. *api.Client implements it.
type TokenRegistrar interface {
	RegisterPushToken(ctx context.Context, id model.Identity, token string) (api.Ack, error)
}

// Registrar runs one push registration per call.
type Registrar struct {
	platform Platform
	backend  TokenRegistrar
	log      zerolog.Logger
}

// NewRegistrar binds a host platform to the backend that stores tokens.
func NewRegistrar(platform Platform, backend TokenRegistrar) *Registrar {
	return &Registrar{
		platform: platform,
		backend:  backend,
		log:      logging.WithComponent("push"),
	}
}

// Register requests permission, fetches the device token and registers it.
// A denied permission returns (NotGranted, nil) without touching the network.
func (r *Registrar) Register(ctx context.Context, id model.Identity) (Outcome, error) {
	granted, err := r.platform.RequestPermission(ctx)
	if err != nil {
		return Failed, fmt.Errorf("request notification permission: %w", err)
	}
	if !granted {
		r.log.Debug().Str("user_id", string(id)).Msg("notification permission not granted")
		return NotGranted, nil
	}

	token, err := r.platform.DeviceToken(ctx)
	if err != nil {
		return Failed, fmt.Errorf("obtain device token: %w", err)
	}
	if _, err := r.backend.RegisterPushToken(ctx, id, token); err != nil {
		return Failed, fmt.Errorf("register push token: %w", err)
	}
	r.log.Info().Str("user_id", string(id)).Msg("push token registered")
	return Registered, nil
}

// StaticPlatform is the terminal platform: the token comes from configuration
// and an empty token means notifications are not enabled.
type StaticPlatform struct {
	Token string
}

func (p StaticPlatform) RequestPermission(context.Context) (bool, error) {
	return p.Token != "", nil
}

func (p StaticPlatform) DeviceToken(context.Context) (string, error) {
	if p.Token == "" {
		return "", ErrPermissionDenied
	}
	return p.Token, nil
}
