package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const callbackPath = "/oauth2/callback"

type callbackResult struct {
	code string
	err  error
}

// Authorize runs the installed-app consent flow: it listens on a loopback
// port, prints the consent URL to prompt, and exchanges the returned code.
func Authorize(ctx context.Context, cfg *oauth2.Config, prompt io.Writer) (*oauth2.Token, error) {
	if cfg == nil {
		return nil, errors.New("youtube auth: oauth config required")
	}
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("youtube auth: listen: %w", err)
	}

	flow := *cfg
	flow.RedirectURL = "http://" + listener.Addr().String() + callbackPath
	state := uuid.NewString()

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.Handle(callbackPath, callbackHandler(state, results))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		_ = server.Serve(listener)
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	consentURL := flow.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	if prompt != nil {
		fmt.Fprintf(prompt, "Open this URL in a browser to authorize reelup:\n\n  %s\n\nWaiting for the redirect on %s ...\n", consentURL, flow.RedirectURL)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-results:
		if result.err != nil {
			return nil, result.err
		}
		tok, err := flow.Exchange(ctx, result.code)
		if err != nil {
			return nil, fmt.Errorf("youtube auth: exchange code: %w", err)
		}
		return tok, nil
	}
}

func callbackHandler(state string, results chan<- callbackResult) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		var result callbackResult
		switch {
		case query.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		case query.Get("error") != "":
			result.err = fmt.Errorf("youtube auth: consent denied: %s", query.Get("error"))
			http.Error(w, "authorization was not granted; you can close this window", http.StatusForbidden)
		case strings.TrimSpace(query.Get("code")) == "":
			result.err = errors.New("youtube auth: redirect carried no code")
			http.Error(w, "missing authorization code", http.StatusBadRequest)
		default:
			result.code = query.Get("code")
			fmt.Fprintln(w, "reelup is authorized; you can close this window.")
		}
		select {
		case results <- result:
		default:
		}
	})
}
