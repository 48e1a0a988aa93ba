package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"seatwise/internal/logger"
	"seatwise/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const principalKey = "principal"

// Claims carried by a bearer token. The subject is the user id.
type Claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for the user.
func IssueToken(secret, issuer, userID string, role models.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates signature, issuer and expiry and returns the principal.
func ParseToken(secret, issuer, raw string) (models.Principal, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return models.Principal{}, err
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return models.Principal{}, fmt.Errorf("token has no valid subject or role")
	}
	return models.Principal{UserID: claims.Subject, Role: claims.Role}, nil
}

// Authenticate requires a valid bearer token and stores the principal in the
// gin context. Requests without one are answered with 401.
func Authenticate(secret, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := bearer(c.GetHeader("Authorization"))
		if err == nil {
			var p models.Principal
			p, err = ParseToken(secret, issuer, raw)
			if err == nil {
				c.Set(principalKey, p)
				c.Request = c.Request.WithContext(logger.ContextWithUserID(c.Request.Context(), p.UserID))
				c.Next()
				return
			}
		}

		logger.WithContext(c.Request.Context()).Debug("Authentication failed", "error", err)
		c.Header("WWW-Authenticate", `Bearer realm="seatwise"`)
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
			Error: "unauthorized",
			Code:  "UNAUTHORIZED",
		})
	}
}

func bearer(header string) (string, error) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", errors.New("missing bearer token")
	}
	return strings.TrimSpace(token), nil
}

// PrincipalFrom returns the principal set by Authenticate.
func PrincipalFrom(c *gin.Context) (models.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return models.Principal{}, false
	}
	p, ok := v.(models.Principal)
	return p, ok
}
