package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/harrisonrobin/raigen/pkg/logging"
)

// DefaultWaitTimeout bounds how long the loopback launcher waits for the user.
const DefaultWaitTimeout = 5 * time.Minute

// Launcher runs an interactive consent flow for authURL and reports how it ended.
// An error means the flow could not be run at all.
type Launcher interface {
	Launch(ctx context.Context, authURL string) (Result, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context, authURL string) (Result, error)

func (f LauncherFunc) Launch(ctx context.Context, authURL string) (Result, error) {
	return f(ctx, authURL)
}

// LoopbackLauncher opens the browser and captures the redirect on a local HTTP server.
type LoopbackLauncher struct {
	Port string
	// Listener, when set, is used instead of listening on Port.
	Listener net.Listener
	Timeout  time.Duration
	// Open opens authURL in a browser. Defaults to OpenBrowser.
	Open func(authURL string) error
	Out  io.Writer
}

func (l *LoopbackLauncher) Launch(ctx context.Context, authURL string) (Result, error) {
	log := logging.WithComponent("auth")
	state := stateOf(authURL)

	listener := l.Listener
	if listener == nil {
		var err error
		listener, err = net.Listen("tcp", net.JoinHostPort("localhost", l.Port))
		if err != nil {
			return Result{}, fmt.Errorf("failed to start listener on port %s: %w", l.Port, err)
		}
	}

	results := make(chan Result, 1)
	server := &http.Server{
		Handler:           callbackRouter(state, results),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       15 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Debug().Err(err).Msg("redirect server shutdown")
		}
	}()

	out := l.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintf(out, "Open the following URL in your browser to connect Google Calendar:\n%s\n", authURL)

	open := l.Open
	if open == nil {
		open = OpenBrowser
	}
	if err := open(authURL); err != nil {
		log.Debug().Err(err).Msg("could not open browser, waiting for manual visit")
	}

	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	log.Info().Str("addr", listener.Addr().String()).Msg("waiting for authorization redirect")
	select {
	case res := <-results:
		return res, nil
	case err := <-serveErr:
		return Result{}, fmt.Errorf("redirect server: %w", err)
	case <-ctx.Done():
		return CanceledResult(), nil
	case <-timer.C:
		return FailedWith("authorization timed out"), nil
	}
}

func callbackRouter(state string, results chan<- Result) http.Handler {
	r := chi.NewRouter()
	r.Get(CallbackPath, func(w http.ResponseWriter, req *http.Request) {
		res := ParseRedirect(req.URL.String(), state)
		switch res.Kind {
		case Succeeded:
			fmt.Fprint(w, "Authentication successful! You can close this window.")
		case Canceled:
			fmt.Fprint(w, "Authorization canceled. You can close this window.")
		default:
			http.Error(w, res.Reason, http.StatusBadRequest)
		}
		// first redirect wins
		select {
		case results <- res:
		default:
		}
	})
	return r
}

// PasteLauncher prints the URL and reads back the redirect URL that the
// operating system delivered to the app scheme. An empty line cancels.
type PasteLauncher struct {
	In  io.Reader
	Out io.Writer
}

func (p *PasteLauncher) Launch(ctx context.Context, authURL string) (Result, error) {
	state := stateOf(authURL)
	out := p.Out
	if out == nil {
		out = os.Stdout
	}
	in := p.In
	if in == nil {
		in = os.Stdin
	}
	fmt.Fprintf(out, "Open the following URL in your browser to connect Google Calendar:\n%s\n", authURL)
	fmt.Fprint(out, "Paste the redirect URL (empty to cancel): ")

	type line struct {
		text string
		err  error
	}
	lines := make(chan line, 1)
	go func() {
		text, err := bufio.NewReader(in).ReadString('\n')
		lines <- line{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return CanceledResult(), nil
	case l := <-lines:
		if l.err != nil && !errors.Is(l.err, io.EOF) {
			return Result{}, fmt.Errorf("read redirect URL: %w", l.err)
		}
		text := strings.TrimSpace(l.text)
		if text == "" {
			return CanceledResult(), nil
		}
		return ParseRedirect(text, state), nil
	}
}

// OpenBrowser asks the desktop to open url.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// NewLauncher picks the launcher that matches the redirect scheme.
func NewLauncher(scheme, port string, in io.Reader, out io.Writer) Launcher {
	switch strings.ToLower(scheme) {
	case "http", "https":
		return &LoopbackLauncher{Port: port, Out: out}
	default:
		return &PasteLauncher{In: in, Out: out}
	}
}
