package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/harrisonrobin/raigen/pkg/api"
	"github.com/harrisonrobin/raigen/pkg/auth"
)

// maxBodyInMessage is counted in runes.
const maxBodyInMessage = 200

// UserMessage turns an operation error into text for the status line.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, auth.ErrAuthorizationCanceled), errors.Is(err, auth.ErrAuthorizationFailed):
		return "Google auth canceled or failed"
	case errors.Is(err, ErrConnectionFailed):
		return "Google connection failed. Please reconnect."
	case errors.Is(err, ErrGenerationInFlight):
		return "Already generating a plan"
	case api.StatusCode(err) == http.StatusTooManyRequests:
		return "Replan limit reached for today"
	case errors.Is(err, api.ErrEmptyResponse):
		return `No plan yet. Tap "Generate Today's Plan".`
	case errors.Is(err, api.ErrNetworkUnavailable):
		return "Network unavailable. Check your connection and try again."
	}

	var rf *api.RequestFailedError
	if errors.As(err, &rf) {
		body := strings.TrimSpace(rf.Body)
		if utf8.RuneCountInString(body) > maxBodyInMessage {
			body = string([]rune(body)[:maxBodyInMessage]) + "…"
		}
		if body == "" {
			return fmt.Sprintf("Request failed (%d)", rf.Status)
		}
		return fmt.Sprintf("Request failed (%d): %s", rf.Status, body)
	}
	return err.Error()
}
