package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"carequeue/internal/shared/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func TestJWTAuthSetsActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "s3cret", Issuer: "carequeue"}}
	userID := uuid.New()

	r := gin.New()
	r.GET("/provider", JWTAuthWithConfig(cfg), RequireRoles(RoleProvider, RoleAdmin), func(c *gin.Context) {
		id, ok := ActorID(c)
		require.True(t, ok)
		c.String(http.StatusOK, id.String())
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Token abc", http.StatusUnauthorized},
		{"bad signature", "Bearer " + signed(t, "other", jwt.MapClaims{"user_id": userID.String(), "role": "provider", "type": "access", "iss": "carequeue"}), http.StatusUnauthorized},
		{"refresh token", "Bearer " + signed(t, "s3cret", jwt.MapClaims{"user_id": userID.String(), "role": "provider", "type": "refresh", "iss": "carequeue"}), http.StatusUnauthorized},
		{"parent forbidden", "Bearer " + signed(t, "s3cret", jwt.MapClaims{"user_id": userID.String(), "role": "parent", "type": "access", "iss": "carequeue"}), http.StatusForbidden},
		{"expired", "Bearer " + signed(t, "s3cret", jwt.MapClaims{"user_id": userID.String(), "role": "provider", "type": "access", "iss": "carequeue", "exp": time.Now().Add(-time.Hour).Unix()}), http.StatusUnauthorized},
		{"provider allowed", "Bearer " + signed(t, "s3cret", jwt.MapClaims{"user_id": userID.String(), "role": "provider", "type": "access", "iss": "carequeue"}), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/provider", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, userID.String(), w.Body.String())
			}
		})
	}
}
