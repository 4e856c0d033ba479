package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/glowlab/glowlab-backend/internal/logger"
	"github.com/glowlab/glowlab-backend/internal/repos"
	"github.com/glowlab/glowlab-backend/internal/requestdata"
	"github.com/glowlab/glowlab-backend/internal/utils"
)

// AuthMiddleware validates bearer tokens issued by the account service and
// resolves the subject claim into request-scoped identity. The subject must
// exist as a user row: tokens for deleted accounts are rejected. Token
// issuance itself lives outside this backend.
type AuthMiddleware struct {
	log      *logger.Logger
	secret   []byte
	userRepo repos.UserRepo
}

func NewAuthMiddleware(log *logger.Logger, userRepo repos.UserRepo) *AuthMiddleware {
	secret := utils.GetEnv("JWT_SECRET_KEY", "", log)
	if secret == "" {
		log.Fatal("JWT_SECRET_KEY is required")
	}
	return &AuthMiddleware{
		log:      log.With("middleware", "AuthMiddleware"),
		secret:   []byte(secret),
		userRepo: userRepo,
	}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractBearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}
		userID, err := am.parseSubject(tokenString)
		if err != nil {
			am.log.Debug("Rejected bearer token", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}
		users, err := am.userRepo.GetByIDs(c.Request.Context(), nil, []uuid.UUID{userID})
		if err != nil {
			am.log.Error("User lookup failed during auth", "error", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "auth backend unavailable"})
			return
		}
		if len(users) == 0 {
			am.log.Debug("Rejected token for unknown user", "user_id", userID)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}
		ctx := requestdata.WithRequestData(c.Request.Context(), &requestdata.RequestData{UserID: userID})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (am *AuthMiddleware) parseSubject(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return am.secret, nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	if !token.Valid {
		return uuid.Nil, fmt.Errorf("token invalid")
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return uuid.Nil, fmt.Errorf("token has no subject: %w", err)
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("token subject is not a user id: %w", err)
	}
	return userID, nil
}

func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
