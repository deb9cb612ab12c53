package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"schoolhub/internal/common"
	"schoolhub/internal/models"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// UserUpserter records identities seen in verified tokens.
type UserUpserter interface {
	Upsert(ctx context.Context, user *models.User) error
}

type JWTConfig struct {
	Secret   string
	JWKSURL  string
	Audience string
}

// Claims are the token fields the API relies on.
type Claims struct {
	jwt.RegisteredClaims
	Email        string                 `json:"email"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
}

func (c *Claims) fullName() string {
	if name, ok := c.UserMetadata["full_name"].(string); ok {
		return name
	}
	return ""
}

// Authenticator verifies bearer tokens issued by the identity provider.
type Authenticator struct {
	keyfunc  jwt.Keyfunc
	methods  []string
	audience string
	jwks     *keyfunc.JWKS
	users    UserUpserter
	log      logrus.FieldLogger
}

// NewAuthenticator verifies HS256 tokens with cfg.Secret, or RS256/ES256
// tokens against the JWKS at cfg.JWKSURL when it is set.
func NewAuthenticator(cfg JWTConfig, users UserUpserter, log logrus.FieldLogger) (*Authenticator, error) {
	a := &Authenticator{audience: cfg.Audience, users: users, log: log}

	if cfg.JWKSURL != "" {
		jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
			RefreshInterval:   time.Hour,
			RefreshRateLimit:  5 * time.Minute,
			RefreshUnknownKID: true,
			RefreshErrorHandler: func(err error) {
				log.WithError(err).Warn("JWKS refresh failed")
			},
		})
		if err != nil {
			return nil, err
		}
		a.jwks = jwks
		a.keyfunc = jwks.Keyfunc
		a.methods = []string{"RS256", "ES256"}
		return a, nil
	}

	if cfg.Secret == "" {
		return nil, errors.New("jwt secret or jwks url is required")
	}
	secret := []byte(cfg.Secret)
	a.keyfunc = func(*jwt.Token) (interface{}, error) { return secret, nil }
	a.methods = []string{"HS256"}
	return a, nil
}

// Close stops the background JWKS refresh.
func (a *Authenticator) Close() {
	if a.jwks != nil {
		a.jwks.EndBackground()
	}
}

func (a *Authenticator) parse(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods(a.methods), jwt.WithExpirationRequired()}
	if a.audience != "" {
		opts = append(opts, jwt.WithAudience(a.audience))
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, a.keyfunc, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token not valid")
	}
	return claims, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// identity on the request context.
func (a *Authenticator) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing token")
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token format")
			}

			claims, err := a.parse(tokenString)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid user_id format")
			}

			ctx := c.Request().Context()
			email := strings.ToLower(claims.Email)
			if err := a.users.Upsert(ctx, &models.User{ID: userID, Email: email, FullName: claims.fullName()}); err != nil {
				return err
			}

			c.SetRequest(c.Request().WithContext(common.WithUser(ctx, userID, email)))
			c.Set("user_id", userID.String())
			return next(c)
		}
	}
}
