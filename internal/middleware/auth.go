package middleware

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin is the role claim granting catalog administration.
const RoleAdmin = "admin"

// ErrInvalidToken is returned by an Authenticator for any rejected token.
var ErrInvalidToken = errors.New("invalid bearer token")

// Caller is the authenticated identity attached to a request.
type Caller struct {
	UserID int
	Role   string
}

// IsAdmin reports whether the caller may curate the catalog.
func (c Caller) IsAdmin() bool { return c.Role == RoleAdmin }

// Authenticator resolves a bearer token to a caller.
type Authenticator interface {
	Authenticate(token string) (Caller, error)
}

type callerKey struct{}

// Auth attaches the caller for requests that carry a bearer token.
// Requests without one continue anonymously; a bad token is rejected.
func Auth(authn Authenticator) fiber.Handler {
	return func(c fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return c.Next()
		}
		if !strings.HasPrefix(header, "Bearer ") {
			return unauthorized(c, "invalid Authorization header format, expected 'Bearer <token>'")
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token == "" {
			return unauthorized(c, "empty bearer token")
		}

		caller, err := authn.Authenticate(token)
		if err != nil {
			// parse details stay out of the response
			return unauthorized(c, "invalid bearer token")
		}
		c.Locals(callerKey{}, caller)
		return c.Next()
	}
}

// CallerFrom returns the caller attached by Auth, if any.
func CallerFrom(c fiber.Ctx) (Caller, bool) {
	caller, ok := c.Locals(callerKey{}).(Caller)
	return caller, ok
}

// RequireUser rejects anonymous requests.
func RequireUser() fiber.Handler {
	return func(c fiber.Ctx) error {
		if _, ok := CallerFrom(c); !ok {
			return unauthorized(c, "authentication required")
		}
		return c.Next()
	}
}

// RequireAdmin rejects anonymous and non-admin requests.
func RequireAdmin() fiber.Handler {
	return func(c fiber.Ctx) error {
		caller, ok := CallerFrom(c)
		if !ok {
			return unauthorized(c, "authentication required")
		}
		if !caller.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "forbidden",
			})
		}
		return c.Next()
	}
}

func unauthorized(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": msg,
	})
}

// Claims are the JWT claims issued by the auth service.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuthenticator verifies HS256 tokens signed with a shared secret.
type JWTAuthenticator struct {
	secret []byte
}

// NewJWTAuthenticator creates a JWTAuthenticator.
func NewJWTAuthenticator(secret string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret)}
}

// Authenticate implements Authenticator. The subject claim carries the
// numeric user id.
func (a *JWTAuthenticator) Authenticate(token string) (Caller, error) {
	if len(a.secret) == 0 {
		return Caller{}, ErrInvalidToken
	}
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return Caller{}, ErrInvalidToken
	}

	userID, err := strconv.Atoi(claims.Subject)
	if err != nil || userID <= 0 {
		return Caller{}, ErrInvalidToken
	}
	return Caller{UserID: userID, Role: claims.Role}, nil
}
