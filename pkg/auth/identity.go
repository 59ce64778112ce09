package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SessionCookie is the cookie carrying the signed session token. The auth
// service mints it at login; this server only verifies it.
const SessionCookie = "chatrelay_session"

type ctxIdentityKey struct{}

// WithIdentity returns a context carrying the verified caller identity.
func WithIdentity(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxIdentityKey{}, userID)
}

// IdentityFromContext returns the verified caller id or empty string.
func IdentityFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxIdentityKey{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// SignUserID computes the hex HMAC-SHA256 of the user id under key. Shared
// with tests and the session-minting collaborator.
func SignUserID(key, userID string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(userID))
	return hex.EncodeToString(mac.Sum(nil))
}

// SessionToken formats a user id and signature as a cookie value.
func SessionToken(userID, sig string) string {
	return userID + "." + sig
}

// splitSessionToken splits "<userID>.<hexsig>" on the last dot so user ids
// may themselves contain dots.
func splitSessionToken(tok string) (userID, sig string, ok bool) {
	i := strings.LastIndex(tok, ".")
	if i <= 0 || i == len(tok)-1 {
		return "", "", false
	}
	return tok[:i], tok[i+1:], true
}

// verifySignature checks the signature against every configured signing
// key so keys can rotate without breaking live sessions.
func verifySignature(keys map[string]struct{}, userID, sig string) bool {
	for k := range keys {
		expected := SignUserID(k, userID)
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return true
		}
	}
	return false
}
