package auth

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/campusgigs/campusgigs-backend/internal/models"
)

// Identity is the acting user, resolved once per request and passed
// explicitly into every service call. Services never read ambient state.
type Identity struct {
	UserID uint
	Role   models.Role
}

type contextKey struct{}

var identityKey contextKey

// TokenProvider issues and verifies HS256 tokens. Issuance exists only for
// the dev-login endpoint; the real auth flow lives outside this service.
type TokenProvider struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenProvider(secret string, ttl time.Duration) *TokenProvider {
	return &TokenProvider{secret: []byte(secret), ttl: ttl}
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (p *TokenProvider) Generate(userID uint, role models.Role) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	})
	return token.SignedString(p.secret)
}

func (p *TokenProvider) Parse(tokenString string) (*Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return p.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return nil, err
	}
	return &Identity{UserID: uint(id), Role: models.Role(c.Role)}, nil
}

// Middleware resolves the bearer token into an Identity on the request
// context. Requests without a valid token are rejected.
func Middleware(provider *TokenProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid authorization header"})
			return
		}
		identity, err := provider.Parse(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		ctx := context.WithValue(c.Request.Context(), identityKey, *identity)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// FromContext returns the Identity placed by Middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}
