package auth

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3" // Used for calendar.CalendarEventsScope
)

const (
	// CallbackPath is where the loopback server expects the provider redirect.
	CallbackPath = "/oauth2callback"

	// customSchemeHost is the host part of a custom-scheme redirect (raigen://oauthredirect).
	customSchemeHost = "oauthredirect"
)

var (
	ErrAuthorizationCanceled = errors.New("authorization canceled")
	ErrAuthorizationFailed   = errors.New("authorization failed")
)

// ResultKind discriminates the outcome of one consent attempt.
type ResultKind int

const (
	Succeeded ResultKind = iota
	Canceled
	Failed
)

func (k ResultKind) String() string {
	switch k {
	case Succeeded:
		return "succeeded"
	case Canceled:
		return "canceled"
	default:
		return "failed"
	}
}

// Result is the outcome of an interactive consent flow. Code is set only
// when Kind is Succeeded, Reason only when Kind is Failed.
type Result struct {
	Kind   ResultKind
	Code   string
	Reason string
}

func SucceededWith(code string) Result { return Result{Kind: Succeeded, Code: code} }
func CanceledResult() Result { return Result{Kind: Canceled} }
func FailedWith(reason string) Result { return Result{Kind: Failed, Reason: reason} }

// Err converts a non-success result to an error matching ErrAuthorizationCanceled
// or ErrAuthorizationFailed.
func (r Result) Err() error {
	switch r.Kind {
	case Succeeded:
		return nil
	case Canceled:
		return ErrAuthorizationCanceled
	default:
		return fmt.Errorf("%w: %s", ErrAuthorizationFailed, r.Reason)
	}
}

// Scopes requested from Google. Only calendar events are needed.
func Scopes() []string {
	return []string{calendar.CalendarEventsScope}
}

// RedirectURI computes the redirect for the given scheme. "http" and "https"
// select the loopback server on port; anything else is treated as an app scheme.
func RedirectURI(scheme, port string) string {
	switch strings.ToLower(scheme) {
	case "http", "https":
		return fmt.Sprintf("http://localhost:%s%s", port, CallbackPath)
	default:
		return fmt.Sprintf("%s://%s", scheme, customSchemeHost)
	}
}

// NewOAuthConfig describes the public client. No secret is held here: the
// backend owns the token exchange.
func NewOAuthConfig(clientID, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    clientID,
		RedirectURL: redirectURI,
		Scopes:      Scopes(),
		Endpoint:    google.Endpoint,
	}
}

// AuthorizationURL builds the consent URL. Offline access plus forced consent
// make Google issue a refresh grant on every connect.
func AuthorizationURL(clientID, redirectURI, state string) string {
	return NewOAuthConfig(clientID, redirectURI).AuthCodeURL(
		state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// stateOf extracts the state parameter from an authorization URL.
func stateOf(authURL string) string {
	u, err := url.Parse(authURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("state")
}

// ParseRedirect maps a provider redirect to a Result. expectedState is
// compared when non-empty.
func ParseRedirect(rawURL, expectedState string) Result {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return FailedWith(fmt.Sprintf("malformed redirect URL: %v", err))
	}
	q := u.Query()
	if e := q.Get("error"); e != "" {
		if e == "access_denied" {
			return CanceledResult()
		}
		if desc := q.Get("error_description"); desc != "" {
			return FailedWith(e + ": " + desc)
		}
		return FailedWith(e)
	}
	if expectedState != "" && q.Get("state") != expectedState {
		return FailedWith("state mismatch in redirect")
	}
	code := q.Get("code")
	if code == "" {
		return FailedWith("authorization code not found in redirect URL")
	}
	return SucceededWith(code)
}
