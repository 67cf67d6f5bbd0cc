package calendar

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendarapi "google.golang.org/api/calendar/v3"

	"github.com/yungbote/jenny-backend/internal/logger"
	"github.com/yungbote/jenny-backend/internal/repos"
	"github.com/yungbote/jenny-backend/internal/types"
)

// OAuthManager runs the connect flow: hands out consent URLs and swaps the
// callback code for tokens persisted per (user, provider).
type OAuthManager struct {
	log      *logger.Logger
	accounts repos.CalendarAccountRepo
	google   *oauth2.Config
}

// NewOAuthManager returns (nil, nil) when no OAuth client is configured so
// the calendar surface can degrade to "not connected".
func NewOAuthManager(log *logger.Logger, accounts repos.CalendarAccountRepo) (*OAuthManager, error) {
	clientID := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_ID"))
	if clientID == "" {
		return nil, nil
	}
	clientSecret := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_SECRET"))
	if clientSecret == "" {
		return nil, fmt.Errorf("missing GOOGLE_OAUTH_CLIENT_SECRET")
	}
	redirectURL := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_REDIRECT_URL"))
	if redirectURL == "" {
		return nil, fmt.Errorf("missing GOOGLE_OAUTH_REDIRECT_URL")
	}

	return &OAuthManager{
		log:      log.With("service", "CalendarOAuth"),
		accounts: accounts,
		google: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{calendarapi.CalendarScope},
			Endpoint:     google.Endpoint,
		},
	}, nil
}

// ConnectURL returns the consent URL for a provider. The user ID rides in
// the state parameter and comes back on the callback.
func (m *OAuthManager) ConnectURL(provider, userID string) (string, error) {
	if m == nil {
		return "", fmt.Errorf("calendar oauth not configured")
	}
	switch provider {
	case ProviderGoogle:
		return m.google.AuthCodeURL(userID,
			oauth2.AccessTypeOffline,
			oauth2.SetAuthURLParam("prompt", "consent"),
		), nil
	}
	return "", fmt.Errorf("unknown calendar provider %q", provider)
}

// HandleCallback exchanges the authorization code and stores the tokens.
func (m *OAuthManager) HandleCallback(ctx context.Context, provider, userID, code string) error {
	if m == nil {
		return fmt.Errorf("calendar oauth not configured")
	}
	if provider != ProviderGoogle {
		return fmt.Errorf("unknown calendar provider %q", provider)
	}
	token, err := m.google.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("oauth exchange: %w", err)
	}
	_, err = m.accounts.Upsert(ctx, nil, &types.CalendarAccount{
		UserID:       userID,
		Provider:     provider,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry,
	})
	if err != nil {
		return fmt.Errorf("store calendar tokens: %w", err)
	}
	m.log.Info("calendar connected", "user_id", userID, "provider", provider)
	return nil
}

// tokenSource wraps the oauth2 refresh flow and writes refreshed tokens back
// to Postgres so a restart does not lose them.
type persistingTokenSource struct {
	ctx      context.Context
	log      *logger.Logger
	base     oauth2.TokenSource
	accounts repos.CalendarAccountRepo
	userID   string
	provider string
	last     *oauth2.Token
}

func (m *OAuthManager) tokenSourceFor(ctx context.Context, account *types.CalendarAccount) oauth2.TokenSource {
	tok := &oauth2.Token{
		AccessToken:  account.AccessToken,
		RefreshToken: account.RefreshToken,
		TokenType:    account.TokenType,
		Expiry:       account.Expiry,
	}
	return &persistingTokenSource{
		ctx:      ctx,
		log:      m.log,
		base:     m.google.TokenSource(ctx, tok),
		accounts: m.accounts,
		userID:   account.UserID,
		provider: account.Provider,
		last:     tok,
	}
}

func (ts *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := ts.base.Token()
	if err != nil {
		return nil, err
	}
	if ts.last == nil || tok.AccessToken != ts.last.AccessToken {
		refresh := tok.RefreshToken
		if refresh == "" && ts.last != nil {
			refresh = ts.last.RefreshToken
		}
		_, uerr := ts.accounts.Upsert(ts.ctx, nil, &types.CalendarAccount{
			UserID:       ts.userID,
			Provider:     ts.provider,
			AccessToken:  tok.AccessToken,
			RefreshToken: refresh,
			TokenType:    tok.TokenType,
			Expiry:       tok.Expiry,
		})
		if uerr != nil {
			// The refresh is still usable in-process, but a restart will
			// come back with the stale token and refresh again.
			ts.log.Warn("refreshed calendar token not persisted", "user_id", ts.userID, "provider", ts.provider, "error", uerr)
		} else {
			ts.last = tok
		}
	}
	return tok, nil
}
