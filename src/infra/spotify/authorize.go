package spotify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// DefaultRedirectURL must be registered as a redirect URI of the Spotify app.
const DefaultRedirectURL = "http://127.0.0.1:8888/callback"

// Authorizer runs the authorization code flow once to obtain a refresh token
// for the current user.
type Authorizer struct {
	auth     *spotifyauth.Authenticator
	state    string
	redirect *url.URL
}

type authResult struct {
	token *oauth2.Token
	err   error
}

// NewAuthorizer prepares an authorization flow redirecting to redirectURL,
// which must point at this machine.
func NewAuthorizer(clientID, clientSecret, redirectURL string) (*Authorizer, error) {
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("client id and client secret are required")
	}
	u, err := url.Parse(redirectURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid redirect url %q", redirectURL)
	}
	auth := spotifyauth.New(
		spotifyauth.WithClientID(clientID),
		spotifyauth.WithClientSecret(clientSecret),
		spotifyauth.WithRedirectURL(redirectURL),
		spotifyauth.WithScopes(
			spotifyauth.ScopePlaylistModifyPublic,
			spotifyauth.ScopePlaylistModifyPrivate,
			spotifyauth.ScopePlaylistReadPrivate,
		),
	)
	return &Authorizer{auth: auth, state: uuid.NewString(), redirect: u}, nil
}

// URL is the page the user opens to grant access.
func (a *Authorizer) URL() string {
	return a.auth.AuthURL(a.state)
}

// Wait serves the redirect URL until the user grants access or ctx is done,
// and returns the refresh token.
func (a *Authorizer) Wait(ctx context.Context) (string, error) {
	result := make(chan authResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(a.redirect.Path, a.callback(result))

	ln, err := net.Listen("tcp", a.redirect.Host)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", a.redirect.Host, err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Authorization callback server failed", "error", err)
		}
	}()
	defer srv.Shutdown(context.Background())

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-result:
		if res.err != nil {
			return "", fmt.Errorf("authorization failed: %w", res.err)
		}
		if res.token.RefreshToken == "" {
			return "", errors.New("spotify did not return a refresh token")
		}
		return res.token.RefreshToken, nil
	}
}

// callback exchanges the code of the first redirect it receives.
func (a *Authorizer) callback(result chan<- authResult) http.HandlerFunc {
	var once sync.Once
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := a.auth.Token(r.Context(), a.state, r)
		if err != nil {
			http.Error(w, "Authorization failed, check the terminal.", http.StatusForbidden)
		} else {
			fmt.Fprintln(w, "Plexify is authorized, you can close this window.")
		}
		once.Do(func() { result <- authResult{token: token, err: err} })
	}
}
