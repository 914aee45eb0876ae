package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired session token")

const issuer = "gatekeeper"

type User struct {
	Username string
}

// Session is the authenticated identity attached to a request.
type Session struct {
	User      User
	ExpiresAt time.Time
}

// Provider resolves the session, if any, carried by a request.
type Provider interface {
	Lookup(r *http.Request) (*Session, bool)
}

type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenProvider stores sessions as HS256-signed JWTs in a cookie.
type TokenProvider struct {
	secret     []byte
	ttl        time.Duration
	cookieName string
	now        func() time.Time
}

func NewTokenProvider(secret string, ttl time.Duration, cookieName string) *TokenProvider {
	return &TokenProvider{
		secret:     []byte(secret),
		ttl:        ttl,
		cookieName: cookieName,
		now:        time.Now,
	}
}

func (p *TokenProvider) CookieName() string { return p.cookieName }

func (p *TokenProvider) TTL() time.Duration { return p.ttl }

// Issue signs a session token for username.
func (p *TokenProvider) Issue(username string) (string, error) {
	now := p.now().UTC()
	c := claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Validate parses a token issued by Issue.
func (p *TokenProvider) Validate(token string) (*Session, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithLeeway(5*time.Second),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || c.Username == "" {
		return nil, ErrInvalidToken
	}
	s := &Session{User: User{Username: c.Username}}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time
	}
	return s, nil
}

// Lookup reads the session cookie. Missing, tampered and expired tokens all
// mean "no session".
func (p *TokenProvider) Lookup(r *http.Request) (*Session, bool) {
	cookie, err := r.Cookie(p.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}
	s, err := p.Validate(cookie.Value)
	if err != nil {
		return nil, false
	}
	return s, true
}
