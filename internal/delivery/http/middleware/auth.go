package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/gdugdh24/mpit2026-matching/internal/domain"
)

// ProfileIDKey is the gin context key holding the authenticated profile id.
const ProfileIDKey = "profile_id"

type AuthMiddleware struct {
	secret []byte
}

func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret)}
}

// IssueToken signs an access token for a profile. Session issuance lives
// outside this service; this is used by tooling and tests.
func (m *AuthMiddleware) IssueToken(profileID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"profile_id": profileID,
		"exp":        now.Add(ttl).Unix(),
		"iat":        now.Unix(),
	})
	return token.SignedString(m.secret)
}

// VerifyToken returns the profile id carried by a valid token.
func (m *AuthMiddleware) VerifyToken(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return 0, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, domain.ErrInvalidToken
	}
	profileID, ok := claims["profile_id"].(float64)
	if !ok || profileID <= 0 {
		return 0, domain.ErrInvalidToken
	}
	return int64(profileID), nil
}

// RequireAuth rejects requests without a valid bearer token.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		profileID, err := m.VerifyToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ProfileIDKey, profileID)
		c.Next()
	}
}

// ProfileID returns the authenticated profile id set by RequireAuth.
func ProfileID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ProfileIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
