package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const ContextUserIDKey = "user_id"

// AccessTokenParam carries the token for clients that cannot set headers,
// such as a browser EventSource on the notification stream.
const AccessTokenParam = "access_token"

var (
	ErrMissingCredentials   = errors.New("missing authorization header")
	ErrMalformedCredentials = errors.New("invalid authorization header")
)

// bearerToken extracts the token from an Authorization header value.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingCredentials
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMalformedCredentials
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMalformedCredentials
	}
	return token, nil
}

// requestToken prefers the Authorization header and falls back to the
// access_token query parameter on GET requests.
func requestToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" && c.Request().Method == http.MethodGet {
		if token := c.QueryParam(AccessTokenParam); token != "" {
			return token, nil
		}
	}
	return bearerToken(header)
}

// JWTMiddleware verifies the bearer token and stores the user id in the context.
func JWTMiddleware(manager *TokenManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := requestToken(c)
			if err != nil {
				return challenge(c, err.Error())
			}

			claims, err := manager.ParseAccessToken(token)
			if err != nil {
				return challenge(c, "invalid token")
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil || userID == uuid.Nil {
				return challenge(c, "invalid token subject")
			}

			c.Set(ContextUserIDKey, userID)
			return next(c)
		}
	}
}

func challenge(c echo.Context, message string) error {
	c.Response().Header().Set("WWW-Authenticate", `Bearer realm="budget-tracker"`)
	return echo.NewHTTPError(http.StatusUnauthorized, message)
}

// UserIDFromContext returns the authenticated user set by JWTMiddleware.
func UserIDFromContext(c echo.Context) (uuid.UUID, bool) {
	userID, ok := c.Get(ContextUserIDKey).(uuid.UUID)
	return userID, ok
}
