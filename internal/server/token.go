package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"taskboard/internal/domain/errors"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenCookie = "jwt_token"
	userIDKey   = "user_id"
)

var (
	errNoToken      = errors.New(errors.ErrAuthFailed, "access denied, no token provided")
	errInvalidToken = errors.New(errors.ErrAuthFailed, "invalid token")
	errTokenExpired = errors.New(errors.ErrAuthFailed, "token expired, please login again")
)

// TokenManager issues and verifies HS256 session tokens carrying the user id.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (m *TokenManager) Issue(userID string) (string, error) {
	now := m.now()
	claims := jwt.MapClaims{
		userIDKey: userID,
		"exp":     now.Add(m.ttl).Unix(),
		"iat":     now.Unix(),
		"nbf":     now.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *TokenManager) Parse(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", errTokenExpired
		}
		return "", errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errInvalidToken
	}
	userID, ok := claims[userIDKey].(string)
	if !ok || userID == "" {
		return "", errInvalidToken
	}
	return userID, nil
}

// extractToken prefers the session cookie and falls back to a bearer header.
func extractToken(ctx *gin.Context) string {
	if cookie, err := ctx.Cookie(tokenCookie); err == nil && cookie != "" {
		return cookie
	}
	header := ctx.GetHeader("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

func (m *TokenManager) setCookie(ctx *gin.Context, token string) {
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(tokenCookie, token, int(m.ttl.Seconds()), "/", "", ctx.Request.TLS != nil, true)
}

func clearCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(tokenCookie, "", -1, "/", "", ctx.Request.TLS != nil, true)
}
