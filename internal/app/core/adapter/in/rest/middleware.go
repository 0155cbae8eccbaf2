package rest

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey int

const callerIDKey contextKey = iota

// withAuth 從 Authorization: Bearer <token> 取出憑證，
// 交給 IdentityProvider 驗證後把呼叫者 ID 放進 request context。
// 核心層從頭到尾不會看到原始憑證。
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		credential, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || credential == "" {
			writeError(w, http.StatusUnauthorized, "missing credential")
			return
		}

		accountID, err := s.identity.Verify(credential)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired credential")
			return
		}

		ctx := context.WithValue(r.Context(), callerIDKey, accountID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// callerID 取出 withAuth 放進 context 的呼叫者 ID
func callerID(r *http.Request) uuid.UUID {
	id, _ := r.Context().Value(callerIDKey).(uuid.UUID)
	return id
}
