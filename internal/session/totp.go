package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
)

// TOTPCode computes the current 2FA code from the base32 secret configured
// on the Kite account. Surfaced in the login flow so the user does not need
// a separate authenticator app open during the pre-market rush.
func TOTPCode(secret string) (string, error) {
	secret = strings.ToUpper(strings.ReplaceAll(secret, " ", ""))
	if secret == "" {
		return "", fmt.Errorf("session: empty TOTP secret")
	}
	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		return "", fmt.Errorf("session: generate TOTP: %w", err)
	}
	return code, nil
}
