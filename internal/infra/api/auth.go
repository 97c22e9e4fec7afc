package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gym-membership/internal/domain"
	"gym-membership/internal/domain/model"
	"gym-membership/internal/domain/ports/adapter"
	"gym-membership/internal/infra/logging"
)

var _ adapter.TokenIssuer = (*AuthManager)(nil)

const tokenIssuer = "gym-membership"

// MemberClaims identify the caller; Subject is the user id.
type MemberClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthManager mints and verifies HS256 bearer tokens.
type AuthManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthManager(secret string, ttl time.Duration) *AuthManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (a *AuthManager) Mint(userID string, role model.Role) (string, error) {
	now := a.now()
	claims := MemberClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse verifies tok and returns the caller it names.
func (a *AuthManager) Parse(tok string) (model.Caller, error) {
	claims := &MemberClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !tkn.Valid {
		return model.Caller{}, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}
	role := model.Role(claims.Role)
	if claims.Subject == "" || !role.Valid() {
		return model.Caller{}, fmt.Errorf("%w: invalid token claims", domain.ErrUnauthorized)
	}
	return model.Caller{ID: claims.Subject, Role: role}, nil
}

func bearer(r *http.Request) (string, error) {
	hdr := r.Header.Get("Authorization")
	if len(hdr) > 7 && strings.EqualFold(hdr[:7], "bearer ") {
		return strings.TrimSpace(hdr[7:]), nil
	}
	return "", errors.New("missing token")
}

type callerKey struct{}

func withCaller(ctx context.Context, c model.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom returns the authenticated caller stored by Authenticate.
func CallerFrom(ctx context.Context) (model.Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(model.Caller)
	return c, ok
}

// Authenticate rejects requests without a valid bearer token.
func (a *AuthManager) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, err := bearer(r)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: authentication required", domain.ErrUnauthorized))
			return
		}
		caller, err := a.Parse(tok)
		if err != nil {
			writeError(w, r, err)
			return
		}
		ctx := withCaller(r.Context(), caller)
		ctx = logging.WithCaller(ctx, caller.ID, string(caller.Role))
		exposeContext(w, ctx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
