// Package auth runs the QuickBooks OAuth2 authorization-code flow and
// keeps a usable bearer credential in the store.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/jask/easycat/internal/config"
	"github.com/jask/easycat/internal/database"
	"github.com/jask/easycat/internal/database/repository"
)

// Endpoint is Intuit's OAuth2 endpoint pair.
var Endpoint = oauth2.Endpoint{
	AuthURL:  "https://appcenter.intuit.com/connect/oauth2",
	TokenURL: "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer",
}

const (
	scopeAccounting = "com.intuit.quickbooks.accounting"

	// tokenExpiryBuffer refreshes tokens slightly before the remote
	// expiry so in-flight requests never race it.
	tokenExpiryBuffer = 5 * time.Minute

	callbackTimeout = 2 * time.Minute
)

// ErrNotAuthorized means no stored credential exists yet.
var ErrNotAuthorized = errors.New("not authorized: run the authorization flow first")

// Result is a completed authorization.
type Result struct {
	RealmID string
	Token   *oauth2.Token
}

// callback is the one-shot payload delivered by the loopback listener.
// Each Authorize call owns its own channel, so concurrent or abandoned
// attempts can never hand their result to the wrong caller.
type callback struct {
	code    string
	realmID string
	state   string
	errMsg  string
}

// Flow drives the authorization-code exchange.
type Flow struct {
	cfg *oauth2.Config
}

// NewFlow builds a flow from the QuickBooks config.
func NewFlow(qb config.QuickBooksConfig) *Flow {
	return &Flow{
		cfg: &oauth2.Config{
			ClientID:     qb.ClientID,
			ClientSecret: qb.ClientSecret,
			RedirectURL:  qb.RedirectURI,
			Endpoint:     Endpoint,
			Scopes:       []string{scopeAccounting},
		},
	}
}

// AuthURL returns the authorization URL for a given CSRF state.
func (f *Flow) AuthURL(state string) string {
	return f.cfg.AuthCodeURL(state)
}

// Authorize runs the full flow: start a loopback listener on the redirect
// port, hand the URL to openURL (typically the user's browser), wait for
// the one-shot callback, then exchange the code for tokens.
func (f *Flow) Authorize(ctx context.Context, openURL func(string) error) (*Result, error) {
	state, err := randomState()
	if err != nil {
		return nil, err
	}

	redirect, err := url.Parse(f.cfg.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("parse redirect uri: %w", err)
	}
	addr := redirect.Host
	if redirect.Port() == "" {
		addr = net.JoinHostPort(redirect.Hostname(), "8085")
	}

	results := make(chan callback, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(redirect.Path, callbackHandler(results))
	srv := &http.Server{Addr: addr, Handler: mux}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := openURL(f.AuthURL(state)); err != nil {
		return nil, fmt.Errorf("open authorization url: %w", err)
	}

	var cb callback
	select {
	case cb = <-results:
	case <-time.After(callbackTimeout):
		return nil, errors.New("authorization timed out")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if cb.errMsg != "" {
		return nil, fmt.Errorf("authorization failed: %s", cb.errMsg)
	}
	if cb.code == "" {
		return nil, errors.New("no authorization code received")
	}
	if cb.state != state {
		return nil, errors.New("state mismatch, aborting")
	}

	tok, err := f.cfg.Exchange(ctx, cb.code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	return &Result{RealmID: cb.realmID, Token: tok}, nil
}

// callbackHandler answers the provider's redirect and delivers the result
// to results exactly once; later hits are ignored.
func callbackHandler(results chan<- callback) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		cb := callback{
			code:    q.Get("code"),
			realmID: q.Get("realmId"),
			state:   q.Get("state"),
			errMsg:  q.Get("error"),
		}
		w.Header().Set("Content-Type", "text/html")
		if cb.errMsg != "" {
			fmt.Fprintf(w, "<html><body><h1>Authorization failed</h1><p>%s</p></body></html>", cb.errMsg)
		} else {
			fmt.Fprint(w, "<html><body><h1>Authorization successful</h1><p>You can close this window and return to easycat.</p></body></html>")
		}
		select {
		case results <- cb:
		default:
		}
	}
}

// SaveResult persists an authorization into the tokens table.
func SaveResult(ctx context.Context, repo *repository.TokenRepo, res *Result) (*repository.Token, error) {
	now := database.Now()
	return repo.Save(ctx, repository.Token{
		RealmID:      res.RealmID,
		AccessToken:  res.Token.AccessToken,
		RefreshToken: res.Token.RefreshToken,
		ExpiresAt:    res.Token.Expiry,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

// TokenSource returns an oauth2.TokenSource backed by the stored
// credential for realmID, refreshing and re-persisting it when it nears
// expiry.
func (f *Flow) TokenSource(ctx context.Context, tokens *repository.TokenRepo, realmID string) oauth2.TokenSource {
	return &storedSource{ctx: ctx, cfg: f.cfg, tokens: tokens, realmID: realmID}
}

type storedSource struct {
	ctx     context.Context
	cfg     *oauth2.Config
	tokens  *repository.TokenRepo
	realmID string
}

func (s *storedSource) Token() (*oauth2.Token, error) {
	rec, err := s.tokens.ByRealm(s.ctx, s.realmID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotAuthorized
	}
	tok := &oauth2.Token{
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		Expiry:       rec.ExpiresAt.Add(-tokenExpiryBuffer),
	}
	if tok.Valid() {
		return tok, nil
	}
	fresh, err := s.cfg.TokenSource(s.ctx, tok).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	rec.AccessToken = fresh.AccessToken
	if fresh.RefreshToken != "" {
		rec.RefreshToken = fresh.RefreshToken
	}
	rec.ExpiresAt = fresh.Expiry
	rec.UpdatedAt = database.Now()
	if _, err := s.tokens.Save(s.ctx, *rec); err != nil {
		return nil, err
	}
	return fresh, nil
}

func randomState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
