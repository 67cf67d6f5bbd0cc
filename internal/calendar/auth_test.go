package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/yungbote/jenny-backend/internal/logger"
	"github.com/yungbote/jenny-backend/internal/types"
)

type fakeAccountRepo struct {
	upserts   int
	upsertErr error
	last      *types.CalendarAccount
}

func (f *fakeAccountRepo) Upsert(ctx context.Context, tx *gorm.DB, account *types.CalendarAccount) (*types.CalendarAccount, error) {
	f.upserts++
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	f.last = account
	return account, nil
}

func (f *fakeAccountRepo) Get(ctx context.Context, tx *gorm.DB, userID, provider string) (*types.CalendarAccount, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAccountRepo) ListProviders(ctx context.Context, tx *gorm.DB, userID string) ([]string, error) {
	return nil, nil
}

func (f *fakeAccountRepo) Delete(ctx context.Context, tx *gorm.DB, userID, provider string) error {
	return nil
}

type staticTokenSource struct{ tok *oauth2.Token }

func (s *staticTokenSource) Token() (*oauth2.Token, error) { return s.tok, nil }

func newPersistingSource(t *testing.T, base oauth2.TokenSource, accounts *fakeAccountRepo, last *oauth2.Token) *persistingTokenSource {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return &persistingTokenSource{
		ctx:      context.Background(),
		log:      log,
		base:     base,
		accounts: accounts,
		userID:   "u1",
		provider: ProviderGoogle,
		last:     last,
	}
}

func TestRefreshedTokenPersisted(t *testing.T) {
	old := &oauth2.Token{AccessToken: "old", RefreshToken: "r1"}
	fresh := &oauth2.Token{AccessToken: "new", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}
	accounts := &fakeAccountRepo{}
	ts := newPersistingSource(t, &staticTokenSource{tok: fresh}, accounts, old)

	tok, err := ts.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok.AccessToken != "new" {
		t.Fatalf("unexpected token %+v", tok)
	}
	if accounts.upserts != 1 {
		t.Fatalf("expected one upsert, got %d", accounts.upserts)
	}
	// A refresh response without a refresh token keeps the stored one.
	if accounts.last.RefreshToken != "r1" {
		t.Fatalf("expected old refresh token kept, got %q", accounts.last.RefreshToken)
	}

	// Unchanged token on the next call must not write again.
	if _, err := ts.Token(); err != nil {
		t.Fatalf("Token: %v", err)
	}
	if accounts.upserts != 1 {
		t.Fatalf("expected no second upsert, got %d", accounts.upserts)
	}
}

func TestRefreshSurvivesPersistenceFailure(t *testing.T) {
	old := &oauth2.Token{AccessToken: "old", RefreshToken: "r1"}
	fresh := &oauth2.Token{AccessToken: "new"}
	accounts := &fakeAccountRepo{upsertErr: errors.New("db down")}
	ts := newPersistingSource(t, &staticTokenSource{tok: fresh}, accounts, old)

	tok, err := ts.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok.AccessToken != "new" {
		t.Fatalf("expected fresh token despite failed persistence, got %+v", tok)
	}

	// The failed write leaves last unchanged, so the next call retries it.
	accounts.upsertErr = nil
	if _, err := ts.Token(); err != nil {
		t.Fatalf("Token: %v", err)
	}
	if accounts.upserts != 2 {
		t.Fatalf("expected a retry upsert, got %d", accounts.upserts)
	}
}
