package auth

import (
	"crypto/subtle"
	"net/http"
	"strconv"
)

// SecretTokenHeader carries the secret_token registered with setWebhook.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// Authorizer decides who may run administrator commands.
type Authorizer struct {
	adminUserID int64
}

func NewAuthorizer(adminUserID int64) *Authorizer {
	return &Authorizer{adminUserID: adminUserID}
}

func (a *Authorizer) IsAdmin(userID int64) bool {
	return a.adminUserID != 0 && userID == a.adminUserID
}

// IsAdminID is IsAdmin for string user ids.
func (a *Authorizer) IsAdminID(userID string) bool {
	id, err := strconv.ParseInt(userID, 10, 64)
	return err == nil && a.IsAdmin(id)
}

// ValidSecret compares a presented webhook secret in constant time. An empty
// expected secret accepts nothing.
func ValidSecret(expected, presented string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) == 1
}

// WebhookSecretMiddleware rejects requests without the expected secret header.
func WebhookSecretMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !ValidSecret(secret, r.Header.Get(SecretTokenHeader)) {
				http.Error(w, "Invalid secret token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
