package middleware

import (
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/vibechat/vibechat-backend/internal/httpx"
	"github.com/vibechat/vibechat-backend/internal/models"
)

// Claims carry the caller's identity and stable display attributes issued by
// the external identity provider. This service only verifies and reads them.
type Claims struct {
	UserID    uint   `json:"user_id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	JoinedAt  int64  `json:"joined_at"`
	jwt.RegisteredClaims
}

func AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		var tokenString string
		if authHeader != "" {
			// Extract token from "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return httpx.Unauthorized(c, "invalid_authorization", "Invalid authorization format")
			}
			tokenString = parts[1]
		} else {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			return httpx.Unauthorized(c, "missing_access_token", "Missing access token")
		}

		// Parse and validate token
		token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
			if token.Method == nil || token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return []byte(os.Getenv("JWT_SECRET")), nil
		})

		if err != nil || !token.Valid {
			return httpx.Unauthorized(c, "invalid_access_token", "Invalid or expired token")
		}

		// Extract claims
		claims, ok := token.Claims.(*Claims)
		if !ok {
			return httpx.Unauthorized(c, "invalid_access_token", "Invalid token")
		}

		// Store user info in context
		c.Locals("userID", claims.UserID)
		c.Locals("name", claims.Name)
		c.Locals("avatarURL", claims.AvatarURL)
		c.Locals("joinedAt", claims.JoinedAt)

		return c.Next()
	}
}

// CurrentAuthor rebuilds the sender snapshot for the authenticated caller.
func CurrentAuthor(c *fiber.Ctx) (models.Author, error) {
	uid, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return models.Author{}, err
	}
	author := models.Author{
		UID:       uid,
		Name:      httpx.LocalString(c, "name"),
		AvatarURL: httpx.LocalString(c, "avatarURL"),
	}
	if v := c.Locals("joinedAt"); v != nil {
		if ts, ok := v.(int64); ok && ts > 0 {
			author.JoinedAt = time.Unix(ts, 0).UTC()
		}
	}
	return author, nil
}
