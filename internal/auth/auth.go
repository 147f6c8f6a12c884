// Package auth signs users in through an OpenID Connect provider using the
// authorization-code flow. Sessions are kept in process memory.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"fintrack/internal/cache"
	"fintrack/internal/log"
)

const (
	stateCookie   = "fintrack_oauth_state"
	sessionCookie = "fintrack_session"
	stateTTL      = 10 * time.Minute
	maxSessions   = 1024
)

var (
	ErrStateMismatch = errors.New("oauth state mismatch")
	ErrMissingCode   = errors.New("authorization code missing")
	ErrDenied        = errors.New("identity provider rejected sign-in")
	ErrUserInfo      = errors.New("failed to read user claims")
)

// Config describes the identity provider and this application's client.
type Config struct {
	// Domain is the provider base URL, e.g. a Cognito hosted UI domain.
	Domain       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// LogoutURL is where the provider sends the browser after sign-out.
	LogoutURL  string
	Scopes     []string
	SessionTTL time.Duration
	HTTPClient *http.Client
}

// User holds the claims of a signed-in user.
type User struct {
	Subject  string `json:"sub"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
}

// DisplayName picks the best available label for the user.
func (u User) DisplayName() string {
	switch {
	case u.Name != "":
		return u.Name
	case u.Username != "":
		return u.Username
	default:
		return u.Email
	}
}

type Provider struct {
	oauth       *oauth2.Config
	domain      string
	userInfoURL string
	logoutURL   string
	secure      bool
	httpClient  *http.Client
	sessions    *cache.LRUCache[User]
	logger      *log.Logger
}

// NewProvider builds a provider. It returns nil when cfg has no client id,
// which disables authentication.
func NewProvider(cfg Config, logger *log.Logger) *Provider {
	if cfg.ClientID == "" {
		return nil
	}
	if logger == nil {
		logger = log.Discard()
	}
	domain := strings.TrimRight(cfg.Domain, "/")
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "email", "profile"}
	}

	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  domain + "/oauth2/authorize",
				TokenURL: domain + "/oauth2/token",
			},
		},
		domain:      domain,
		userInfoURL: domain + "/oauth2/userInfo",
		logoutURL:   cfg.LogoutURL,
		secure:      strings.HasPrefix(cfg.RedirectURL, "https://"),
		httpClient:  cfg.HTTPClient,
		sessions:    cache.NewLRUCache[User](maxSessions, ttl),
		logger:      logger.WithComponent(log.ComponentAuth),
	}
}

// Enabled reports whether sign-in is required. A nil provider is disabled.
func (p *Provider) Enabled() bool {
	return p != nil
}

// Sessions exposes the session cache for periodic cleanup.
func (p *Provider) Sessions() *cache.LRUCache[User] {
	return p.sessions
}

// SigninRedirect starts the authorization-code flow.
func (p *Provider) SigninRedirect(w http.ResponseWriter, r *http.Request) {
	state, err := randomToken()
	if err != nil {
		p.logger.ErrorContext(r.Context(), "Failed to generate state", log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   p.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, p.oauth.AuthCodeURL(state), http.StatusFound)
}

// HandleCallback completes the flow: it checks the state, exchanges the code,
// reads the user claims and starts a session.
func (p *Provider) HandleCallback(w http.ResponseWriter, r *http.Request) (User, error) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		return User{}, fmt.Errorf("%w: %s %s", ErrDenied, e, q.Get("error_description"))
	}
	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" || c.Value != q.Get("state") {
		return User{}, ErrStateMismatch
	}
	clearCookie(w, stateCookie, p.secure)

	code := q.Get("code")
	if code == "" {
		return User{}, ErrMissingCode
	}

	ctx := p.clientContext(r.Context())
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return User{}, fmt.Errorf("exchange code: %w", err)
	}
	user, err := p.fetchUser(ctx, tok)
	if err != nil {
		return User{}, err
	}

	sessionID, err := randomToken()
	if err != nil {
		return User{}, fmt.Errorf("session id: %w", err)
	}
	p.sessions.Set(sessionID, user)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   p.secure,
		SameSite: http.SameSiteLaxMode,
	})
	p.logger.InfoContext(r.Context(), "User signed in", log.FieldUser, user.DisplayName())
	return user, nil
}

func (p *Provider) clientContext(ctx context.Context) context.Context {
	if p.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

func (p *Provider) fetchUser(ctx context.Context, tok *oauth2.Token) (User, error) {
	resp, err := p.oauth.Client(ctx, tok).Get(p.userInfoURL)
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrUserInfo, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return User{}, fmt.Errorf("%w: status %d", ErrUserInfo, resp.StatusCode)
	}

	var claims struct {
		User
		CognitoUsername string `json:"cognito:username"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&claims); err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrUserInfo, err)
	}
	user := claims.User
	if user.Username == "" {
		user.Username = claims.CognitoUsername
	}
	if user.Subject == "" && user.Email == "" && user.Username == "" {
		return User{}, fmt.Errorf("%w: no identifying claim", ErrUserInfo)
	}
	return user, nil
}

// User returns the signed-in user of r.
func (p *Provider) User(r *http.Request) (User, bool) {
	if p == nil {
		return User{}, false
	}
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return User{}, false
	}
	return p.sessions.Get(c.Value)
}

// IsAuthenticated reports whether r carries a live session.
func (p *Provider) IsAuthenticated(r *http.Request) bool {
	_, ok := p.User(r)
	return ok
}

// RemoveUser ends the local session.
func (p *Provider) RemoveUser(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		p.sessions.Delete(c.Value)
	}
	clearCookie(w, sessionCookie, p.secure)
}

// LogoutURL is the provider endpoint that ends the provider session and
// returns the browser to the configured logout URL.
func (p *Provider) LogoutURL() string {
	v := url.Values{}
	v.Set("client_id", p.oauth.ClientID)
	v.Set("logout_uri", p.logoutURL)
	return p.domain + "/logout?" + v.Encode()
}

type contextKey struct{}

// WithUser stores user in ctx.
func WithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFromContext returns the user stored by the middleware.
func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(contextKey{}).(User)
	return u, ok
}

// Middleware rejects requests without a session with 401. Disabled providers
// let everything through.
func (p *Provider) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !p.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		user, ok := p.User(r)
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"authentication required"}`))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func clearCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
