package auth

import (
	"context"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/jask/easycat/internal/config"
	"github.com/jask/easycat/internal/database"
	"github.com/jask/easycat/internal/database/repository"
)

func testFlow() *Flow {
	return NewFlow(config.QuickBooksConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:8085/callback",
	})
}

func newTokenRepo(t *testing.T) *repository.TokenRepo {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.RunMigrationsWithDB(db))
	return repository.NewTokenRepo(db)
}

func TestAuthURL(t *testing.T) {
	t.Parallel()
	raw := testFlow().AuthURL("state-123")
	u, err := url.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "appcenter.intuit.com", u.Host)
	q := u.Query()
	require.Equal(t, "state-123", q.Get("state"))
	require.Equal(t, "client-id", q.Get("client_id"))
	require.Equal(t, scopeAccounting, q.Get("scope"))
	require.Equal(t, "http://localhost:8085/callback", q.Get("redirect_uri"))
}

func TestCallbackHandlerDeliversOnce(t *testing.T) {
	t.Parallel()
	results := make(chan callback, 1)
	handler := callbackHandler(results)

	hit := func(query string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest("GET", "/callback?"+query, nil))
		return rec
	}

	rec := hit("code=abc&realmId=realm-9&state=s1")
	require.Contains(t, rec.Body.String(), "successful")

	// a stray second redirect must not block or overwrite
	hit("code=zzz&realmId=realm-0&state=s2")

	select {
	case cb := <-results:
		require.Equal(t, "abc", cb.code)
		require.Equal(t, "realm-9", cb.realmID)
		require.Equal(t, "s1", cb.state)
	case <-time.After(time.Second):
		t.Fatal("no callback delivered")
	}
	select {
	case cb := <-results:
		t.Fatalf("unexpected second delivery: %+v", cb)
	default:
	}
}

func TestCallbackHandlerReportsProviderError(t *testing.T) {
	t.Parallel()
	results := make(chan callback, 1)
	rec := httptest.NewRecorder()
	callbackHandler(results)(rec, httptest.NewRequest("GET", "/callback?error=access_denied", nil))
	require.Contains(t, rec.Body.String(), "failed")

	cb := <-results
	require.Equal(t, "access_denied", cb.errMsg)
	require.Empty(t, cb.code)
}

func TestStoredSourceWithoutCredential(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tokens := newTokenRepo(t)
	src := testFlow().TokenSource(ctx, tokens, "realm-9")

	_, err := src.Token()
	require.ErrorIs(t, err, ErrNotAuthorized)
}

func TestStoredSourceReturnsValidToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tokens := newTokenRepo(t)
	now := database.Now()
	_, err := tokens.Save(ctx, repository.Token{
		RealmID:      "realm-9",
		AccessToken:  "still-good",
		RefreshToken: "refresh",
		ExpiresAt:    now.Add(time.Hour),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)

	src := testFlow().TokenSource(ctx, tokens, "realm-9")
	tok, err := src.Token()
	require.NoError(t, err)
	require.Equal(t, "still-good", tok.AccessToken)
}

func TestSaveResultPersistsToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tokens := newTokenRepo(t)
	expiry := database.Now().Add(time.Hour)

	saved, err := SaveResult(ctx, tokens, &Result{
		RealmID: "realm-9",
		Token:   &oauth2.Token{AccessToken: "at", RefreshToken: "rt", Expiry: expiry},
	})
	require.NoError(t, err)
	require.Equal(t, "realm-9", saved.RealmID)
	require.Equal(t, "at", saved.AccessToken)
	require.Equal(t, "rt", saved.RefreshToken)
	require.True(t, saved.ExpiresAt.Equal(expiry))
}
