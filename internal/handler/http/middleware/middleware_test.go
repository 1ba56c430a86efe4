package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestAgentKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hashed-secret"), bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name   string
		key    string
		hash   string
		header string
		value  string
		wantOK bool
	}{
		{name: "plain key header", key: "s3cret", header: AgentKeyHeader, value: "s3cret", wantOK: true},
		{name: "plain key bearer", key: "s3cret", header: "Authorization", value: "Bearer s3cret", wantOK: true},
		{name: "wrong key", key: "s3cret", header: AgentKeyHeader, value: "nope"},
		{name: "missing key", key: "s3cret"},
		{name: "nothing configured", header: AgentKeyHeader, value: ""},
		{name: "bcrypt hash", hash: string(hash), header: AgentKeyHeader, value: "hashed-secret", wantOK: true},
		{name: "bcrypt mismatch", hash: string(hash), header: AgentKeyHeader, value: "s3cret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/sync-agent/poll", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()

			AgentKey(tt.key, tt.hash)(okHandler).ServeHTTP(rec, req)

			if tt.wantOK {
				assert.Equal(t, http.StatusOK, rec.Code)
			} else {
				assert.Equal(t, http.StatusUnauthorized, rec.Code)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Every(time.Hour), 2, time.Minute)
	handler := RateLimit(limiter)(okHandler)

	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1:5000"))
	assert.Equal(t, http.StatusOK, call("10.0.0.1:5001"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:5002"))
	assert.Equal(t, http.StatusOK, call("10.0.0.2:5000"))
	assert.Same(t, limiter.GetLimiter("10.0.0.1"), limiter.GetLimiter("10.0.0.1"))
}
