// Package admin serves the authenticated review API over stored applications.
package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"mortgage-funnel/internal/common/config"
	httpx "mortgage-funnel/internal/common/http"
	"mortgage-funnel/internal/common/logger"
	"mortgage-funnel/internal/models"
)

const tokenCookie = "mortgageAdminToken"

var (
	ErrInvalidCredentials = errors.New("UNAUTHORIZED")
	ErrTokenMissing       = errors.New("TOKEN_MISSING")
	ErrTokenInvalid       = errors.New("TOKEN_INVALID")
	ErrTokenExpired       = errors.New("TOKEN_EXPIRED")
)

// Claims is the admin token payload.
type Claims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type claimsKey struct{}

// ClaimsFrom returns the verified claims stored by the middleware.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

// actor names who performed a change, for audit entries.
func actor(ctx context.Context) string {
	if c, ok := ClaimsFrom(ctx); ok && c.UserID != "" {
		return c.UserID
	}
	return "admin"
}

// Authenticator checks the single admin credential and issues HS256 tokens.
type Authenticator struct {
	username string
	hash     []byte
	email    string
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
	logger   logger.Logger
}

// NewAuthenticator hashes a plain configured password when no hash is given.
func NewAuthenticator(cfg config.AdminConfig, log logger.Logger) (*Authenticator, error) {
	hash := []byte(cfg.PasswordHash)
	if len(hash) == 0 {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("admin jwt secret is required")
	}
	ttl := time.Duration(cfg.TokenTTL) * time.Minute
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Authenticator{
		username: cfg.Username,
		hash:     hash,
		email:    cfg.Email,
		secret:   []byte(cfg.JWTSecret),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger.Component(log, "admin-auth"),
	}, nil
}

// Login verifies the credential and returns a signed token.
func (a *Authenticator) Login(username, password string) (*models.LoginResponse, error) {
	if username != a.username || bcrypt.CompareHashAndPassword(a.hash, []byte(password)) != nil {
		a.logger.Warn("admin login rejected", map[string]interface{}{"username": username})
		return nil, ErrInvalidCredentials
	}

	now := a.now()
	claims := Claims{
		UserID: a.username,
		Role:   models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("sign admin token: %w", err)
	}

	return &models.LoginResponse{
		Token: token,
		User: models.AdminUser{
			ID:       a.username,
			Username: a.username,
			Role:     models.RoleAdmin,
			Email:    a.email,
		},
	}, nil
}

// Verify parses a token. The role is not checked here.
func (a *Authenticator) Verify(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrTokenMissing
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &Claims{}
	_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil {
		var verr *jwt.ValidationError
		if errors.As(err, &verr) && verr.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	return claims, nil
}

func tokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(tokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// Middleware rejects requests without an admin token.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.Verify(tokenFrom(r))
		switch {
		case errors.Is(err, ErrTokenMissing):
			httpx.WriteError(w, http.StatusUnauthorized, "Access denied. No authentication token provided.")
			return
		case errors.Is(err, ErrTokenExpired):
			httpx.WriteError(w, http.StatusUnauthorized, "Authentication token has expired.")
			return
		case err != nil:
			httpx.WriteError(w, http.StatusUnauthorized, "Invalid authentication token.")
			return
		case claims.Role != models.RoleAdmin:
			httpx.WriteError(w, http.StatusForbidden, "Access denied. Insufficient permissions.")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}
