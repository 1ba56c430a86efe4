package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/pinky-hr/attendance-engine/internal/domain/auth"
	"github.com/pinky-hr/attendance-engine/internal/handler/http/response"
	"golang.org/x/crypto/bcrypt"
)

const AgentKeyHeader = "X-Agent-Key"

// AgentKey authenticates the collector agent with its pre-shared key, sent
// in X-Agent-Key or as a bearer token. When keyHash is set the key is
// checked against the bcrypt hash instead of the plain key.
func AgentKey(key, keyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get(AgentKeyHeader)
			if presented == "" {
				presented, _ = strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			}
			if presented == "" || !agentKeyMatches(presented, key, keyHash) {
				response.HandleError(w, auth.ErrInvalidAgentKey)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func agentKeyMatches(presented, key, keyHash string) bool {
	if keyHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(presented)) == nil
	}
	if key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(key)) == 1
}
