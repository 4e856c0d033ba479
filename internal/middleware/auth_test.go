package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/glowlab/glowlab-backend/internal/logger"
	"github.com/glowlab/glowlab-backend/internal/repos"
	"github.com/glowlab/glowlab-backend/internal/requestdata"
	"github.com/glowlab/glowlab-backend/internal/types"
)

const testSecret = "auth-test-secret"

func newAuthFixture(t *testing.T) (*AuthMiddleware, repos.UserRepo) {
	t.Helper()
	t.Setenv("JWT_SECRET_KEY", testSecret)

	log, err := logger.New("production")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&types.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	userRepo := repos.NewUserRepo(db, log)
	return NewAuthMiddleware(log, userRepo), userRepo
}

func signToken(t *testing.T, secret string, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	am, userRepo := newAuthFixture(t)

	user := &types.User{ID: uuid.New(), Email: "auth@example.com"}
	if err := userRepo.Create(t.Context(), nil, []*types.User{user}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	var gotUserID uuid.UUID
	router := gin.New()
	router.GET("/protected", am.RequireAuth(), func(c *gin.Context) {
		rd := requestdata.GetRequestData(c.Request.Context())
		if rd != nil {
			gotUserID = rd.UserID
		}
		c.Status(http.StatusOK)
	})

	cases := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{
			name:       "valid token for existing user",
			header:     "Bearer " + signToken(t, testSecret, user.ID.String()),
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing header",
			header:     "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong signing key",
			header:     "Bearer " + signToken(t, "other-secret", user.ID.String()),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "subject is not a uuid",
			header:     "Bearer " + signToken(t, testSecret, "not-a-uuid"),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "token for a deleted user",
			header:     "Bearer " + signToken(t, testSecret, uuid.NewString()),
			wantStatus: http.StatusUnauthorized,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
		})
	}

	if gotUserID != user.ID {
		t.Fatalf("request identity = %s, want %s", gotUserID, user.ID)
	}
}
