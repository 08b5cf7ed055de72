package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteBuckets(t *testing.T) {
	tests := map[string]RateLimitType{
		"/health":                                 RateLimitTypeHealth,
		"/api/v1/admin/offers/cleanup":            RateLimitTypeAdmin,
		"/api/v1/provider/campaigns/:campaign_id": RateLimitTypeProvider,
		"/api/v1/offers/:offer_id/respond":        RateLimitTypePublic,
		"/api/v1/waitlist/entries":                RateLimitTypePublic,
		"/api/v1/other":                           RateLimitTypeDefault,
	}
	for path, want := range tests {
		assert.Equal(t, want, getRateLimitType(path), path)
	}
}

func TestDisabledAndWhitelistedBypassRedis(t *testing.T) {
	ctx := context.Background()
	rl := NewRateLimiter(nil, &Config{Enabled: false, WindowDuration: time.Minute, PublicRequests: 5})
	res, err := rl.IsAllowed(ctx, "10.0.0.1", RateLimitTypePublic)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 5, res.Remaining)

	rl = NewRateLimiter(nil, &Config{Enabled: true, WindowDuration: time.Minute, AdminRequests: 2, WhitelistedIPs: []string{"10.0.0.9"}})
	res, err = rl.IsAllowed(ctx, "10.0.0.9", RateLimitTypeAdmin)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestClientIPPrefersForwardedHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "192.168.1.10:5555"

	assert.Equal(t, "192.168.1.10", getClientIP(c))

	c.Request.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", getClientIP(c))
}
