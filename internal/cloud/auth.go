package cloud

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

// AuthState describes where a provider session currently stands.
type AuthState string

const (
	AuthUnauthenticated AuthState = "unauthenticated"
	AuthAuthenticating  AuthState = "authenticating"
	AuthAuthenticated   AuthState = "authenticated"
	AuthError           AuthState = "error"
)

// AuthRequest is the opaque handoff produced for the host platform, which
// runs the interactive sign-in flow itself and reports back an AuthResult.
type AuthRequest struct {
	ID       string   `json:"id"`
	Provider Provider `json:"provider"`
	AuthURL  string   `json:"auth_url,omitempty"`
}

// AuthResult carries the outcome of a host-driven sign-in flow.
type AuthResult struct {
	RequestID string   `json:"request_id"`
	Provider  Provider `json:"provider"`
	Token     string   `json:"token,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Authenticator models "is an authenticated session available" for one cloud
// provider. Fetch operations gate on IsAuthenticated; Authenticate attempts a
// silent session restore and never runs interactive UI.
type Authenticator interface {
	Provider() Provider
	State() AuthState

	IsAuthenticated() bool
	Authenticate(ctx context.Context) (bool, error)
	Logout(ctx context.Context) error

	// BeginAuth produces an opaque request for the host's interactive flow.
	// CompleteAuth consumes the host's result and reports whether it was
	// handled and left the session usable.
	BeginAuth() AuthRequest
	CompleteAuth(res AuthResult) bool
}

// StaticAuthenticator treats a statically configured credential pair as the
// session. It is authenticated whenever both halves are present, matching the
// SDK default-credential model used for object storage.
type StaticAuthenticator struct {
	provider  Provider
	accessKey string
	secretKey string

	mu    sync.Mutex
	state AuthState
}

func NewStaticAuthenticator(provider Provider, accessKey, secretKey string) *StaticAuthenticator {
	a := &StaticAuthenticator{
		provider:  provider,
		accessKey: accessKey,
		secretKey: secretKey,
		state:     AuthUnauthenticated,
	}
	if accessKey != "" && secretKey != "" {
		a.state = AuthAuthenticated
	}
	return a
}

func (a *StaticAuthenticator) Provider() Provider { return a.provider }

func (a *StaticAuthenticator) State() AuthState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *StaticAuthenticator) IsAuthenticated() bool {
	return a.State() == AuthAuthenticated
}

func (a *StaticAuthenticator) Authenticate(ctx context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.accessKey != "" && a.secretKey != "" {
		a.state = AuthAuthenticated
		return true, nil
	}
	a.state = AuthUnauthenticated
	return false, nil
}

func (a *StaticAuthenticator) Logout(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.accessKey = ""
	a.secretKey = ""
	a.state = AuthUnauthenticated
	return nil
}

func (a *StaticAuthenticator) BeginAuth() AuthRequest {
	return AuthRequest{
		ID:       uuid.New().String(),
		Provider: a.provider,
	}
}

func (a *StaticAuthenticator) CompleteAuth(res AuthResult) bool {
	if res.Provider != a.provider || res.Error != "" {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = AuthAuthenticated
	return true
}

// TokenAuthenticator holds a bearer-token session validated with HS256. An
// expired or malformed token counts as no session. When a SessionStore is
// configured, tokens survive component restarts and Authenticate can restore
// a session silently.
type TokenAuthenticator struct {
	provider Provider
	secret   string
	sessions *SessionStore

	mu    sync.Mutex
	token string
	state AuthState
}

func NewTokenAuthenticator(provider Provider, secret string, sessions *SessionStore) *TokenAuthenticator {
	return &TokenAuthenticator{
		provider: provider,
		secret:   secret,
		sessions: sessions,
		state:    AuthUnauthenticated,
	}
}

func (a *TokenAuthenticator) Provider() Provider { return a.provider }

func (a *TokenAuthenticator) State() AuthState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *TokenAuthenticator) IsAuthenticated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state == AuthAuthenticated && a.validateLocked(a.token) == nil
}

func (a *TokenAuthenticator) Authenticate(ctx context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == AuthAuthenticated && a.validateLocked(a.token) == nil {
		return true, nil
	}

	a.state = AuthAuthenticating

	if a.sessions != nil {
		token, err := a.sessions.Get(ctx, a.provider)
		if err == nil && a.validateLocked(token) == nil {
			a.token = token
			a.state = AuthAuthenticated
			return true, nil
		}
	}

	a.state = AuthUnauthenticated
	return false, nil
}

func (a *TokenAuthenticator) Logout(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.token = ""
	a.state = AuthUnauthenticated

	if a.sessions != nil {
		return a.sessions.Delete(ctx, a.provider)
	}
	return nil
}

func (a *TokenAuthenticator) BeginAuth() AuthRequest {
	return AuthRequest{
		ID:       uuid.New().String(),
		Provider: a.provider,
	}
}

func (a *TokenAuthenticator) CompleteAuth(res AuthResult) bool {
	if res.Provider != a.provider {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if res.Error != "" {
		a.state = AuthError
		return false
	}
	if err := a.validateLocked(res.Token); err != nil {
		a.state = AuthError
		return false
	}

	a.token = res.Token
	a.state = AuthAuthenticated

	if a.sessions != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		// Persistence is best effort; the in-memory session stands either way.
		_ = a.sessions.Store(ctx, a.provider, res.Token, sessionTTL(res.Token, a.secret))
	}
	return true
}

func (a *TokenAuthenticator) validateLocked(token string) error {
	if token == "" {
		return ErrInvalidToken
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(a.secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpiredToken
		}
		return ErrInvalidToken
	}
	if !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}

// sessionTTL derives a store expiry from the token's exp claim, defaulting to
// an hour when the claim is absent or unreadable.
func sessionTTL(token, secret string) time.Duration {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || parsed == nil {
		return time.Hour
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Hour
	}
	ttl := time.Until(exp.Time)
	if ttl <= 0 {
		return time.Hour
	}
	return ttl
}
