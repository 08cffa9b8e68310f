// Package middleware holds the fiber middleware shared by the API: caller
// identity resolution and request logging.
package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"telehealth-consultation-service/internal/domain/apperrors"
	"telehealth-consultation-service/internal/domain/entities"
)

// callerLocalKey is where the resolved caller is stored on the request.
const callerLocalKey = "auth.caller"

// IdentityClaims is the claim set of the platform's bearer token: who the
// caller is and which role they hold. Session issuance lives outside this
// service; only verification happens here.
type IdentityClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// NewIdentity returns the middleware resolving the caller from the
// Authorization header. Requests without a valid token are rejected with the
// UNAUTHORIZED envelope before reaching any handler.
func NewIdentity(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		const prefix = "Bearer "
		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, prefix) {
			return unauthorized(c, "missing bearer token")
		}

		claims := &IdentityClaims{}
		token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, prefix), claims,
			func(*jwt.Token) (any, error) { return secret, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			return unauthorized(c, "invalid or expired token")
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			return unauthorized(c, "token carries no valid user id")
		}
		role := entities.Role(claims.Role)
		if !entities.IsValidRole(role) {
			return unauthorized(c, "token carries no valid role")
		}

		c.Locals(callerLocalKey, entities.Caller{UserID: userID, Role: role})
		return c.Next()
	}
}

// CallerFromCtx returns the caller resolved by the identity middleware.
func CallerFromCtx(c *fiber.Ctx) (entities.Caller, bool) {
	caller, ok := c.Locals(callerLocalKey).(entities.Caller)
	return caller, ok
}

// SignIdentityToken mints a bearer token the identity middleware accepts.
// Used by the local demo seeding and the test suite; production tokens come
// from the platform's auth service, which signs with the same secret.
func SignIdentityToken(secret []byte, userID uuid.UUID, role entities.Role, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := IdentityClaims{
		UserID: userID.String(),
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(apperrors.HTTPStatus(apperrors.CodeUnauthorized)).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    apperrors.CodeUnauthorized,
			"message": message,
		},
	})
}
