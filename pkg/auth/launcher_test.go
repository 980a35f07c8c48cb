package auth

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newLoopback(t *testing.T, query func(state string) string) *LoopbackLauncher {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	return &LoopbackLauncher{
		Listener: ln,
		Out:      io.Discard,
		Timeout:  5 * time.Second,
		Open: func(authURL string) error {
			if query == nil {
				return nil
			}
			resp, err := client.Get(fmt.Sprintf("http://%s%s?%s", ln.Addr(), CallbackPath, query(stateOf(authURL))))
			if err != nil {
				return err
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			return resp.Body.Close()
		},
	}
}

func TestLoopbackLauncherCapturesCode(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	l := newLoopback(t, func(state string) string { return "code=abc&state=" + state })
	res, err := l.Launch(context.Background(), AuthorizationURL("client", RedirectURI("http", "6789"), "s1"))
	require.NoError(t, err)
	assert.Equal(t, Succeeded, res.Kind)
	assert.Equal(t, "abc", res.Code)
}

func TestLoopbackLauncherAccessDenied(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	l := newLoopback(t, func(state string) string { return "error=access_denied&state=" + state })
	res, err := l.Launch(context.Background(), AuthorizationURL("client", RedirectURI("http", "6789"), "s1"))
	require.NoError(t, err)
	assert.Equal(t, Canceled, res.Kind)
}

func TestLoopbackLauncherContextCanceled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := newLoopback(t, nil)
	res, err := l.Launch(ctx, AuthorizationURL("client", RedirectURI("http", "6789"), "s1"))
	require.NoError(t, err)
	assert.Equal(t, Canceled, res.Kind)
}

func TestLoopbackLauncherTimesOut(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	l := newLoopback(t, nil)
	l.Timeout = 20 * time.Millisecond
	res, err := l.Launch(context.Background(), AuthorizationURL("client", RedirectURI("http", "6789"), "s1"))
	require.NoError(t, err)
	assert.Equal(t, Failed, res.Kind)
	assert.Contains(t, res.Reason, "timed out")
}

func TestPasteLauncher(t *testing.T) {
	authURL := AuthorizationURL("client", RedirectURI("raigen", ""), "s1")

	var out strings.Builder
	p := &PasteLauncher{In: strings.NewReader("raigen://oauthredirect?code=pasted&state=s1\n"), Out: &out}
	res, err := p.Launch(context.Background(), authURL)
	require.NoError(t, err)
	assert.Equal(t, SucceededWith("pasted"), res)
	assert.Contains(t, out.String(), authURL)

	p = &PasteLauncher{In: strings.NewReader("\n"), Out: io.Discard}
	res, err = p.Launch(context.Background(), authURL)
	require.NoError(t, err)
	assert.Equal(t, Canceled, res.Kind)

	p = &PasteLauncher{In: strings.NewReader(""), Out: io.Discard}
	res, err = p.Launch(context.Background(), authURL)
	require.NoError(t, err)
	assert.Equal(t, Canceled, res.Kind)
}

func TestNewLauncher(t *testing.T) {
	assert.IsType(t, &LoopbackLauncher{}, NewLauncher("http", "6789", nil, nil))
	assert.IsType(t, &PasteLauncher{}, NewLauncher("raigen", "6789", nil, nil))
}
