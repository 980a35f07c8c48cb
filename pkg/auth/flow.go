package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/harrisonrobin/raigen/pkg/api"
	"github.com/harrisonrobin/raigen/pkg/model"
)

// CodeExchanger is the backend half of the flow. *api.Client implements it.
type CodeExchanger interface {
	ExchangeGoogleCode(ctx context.Context, code string, id model.Identity) (api.Ack, error)
}

// Flow ties together URL construction, the consent launcher and the backend exchange.
type Flow struct {
	ClientID    string
	RedirectURI string
	Launcher    Launcher
	Backend     CodeExchanger

	// NewState returns the anti-forgery state for one attempt. Defaults to a random UUID.
	NewState func() string
}

// AuthorizationURL returns the consent URL for state.
func (f *Flow) AuthorizationURL(state string) string {
	return AuthorizationURL(f.ClientID, f.RedirectURI, state)
}

// Authorize runs one interactive consent attempt. Launcher errors are folded
// into a Failed result so callers only branch on Kind.
func (f *Flow) Authorize(ctx context.Context) Result {
	newState := f.NewState
	if newState == nil {
		newState = uuid.NewString
	}
	res, err := f.Launcher.Launch(ctx, f.AuthorizationURL(newState()))
	if err != nil {
		return FailedWith(err.Error())
	}
	return res
}

// Exchange forwards code to the backend exactly once. A redeemed or expired
// code cannot be replayed, so failures are returned and never retried here.
func (f *Flow) Exchange(ctx context.Context, code string, id model.Identity) (api.Ack, error) {
	ack, err := f.Backend.ExchangeGoogleCode(ctx, code, id)
	if err != nil {
		return api.Ack{}, fmt.Errorf("exchange authorization code: %w", err)
	}
	return ack, nil
}
