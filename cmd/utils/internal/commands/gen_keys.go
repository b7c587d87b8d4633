package commands

import (
	"encoding/base64"
	"fmt"

	authpkg "github.com/appetiteclub/apt/auth"
)

// GenKeys generates an ed25519 key pair for session token signing and
// prints both halves base64-encoded, ready for the service config.
func GenKeys() error {
	publicKey, privateKey, err := authpkg.GenerateKeyPair()
	if err != nil {
		return fmt.Errorf("generate key pair: %w", err)
	}

	fmt.Printf("PRINTDESK_AUTH_TOKEN_KEY_PRIVATE=%s\n", base64.StdEncoding.EncodeToString(privateKey))
	fmt.Printf("PRINTDESK_AUTH_TOKEN_KEY_PUBLIC=%s\n", base64.StdEncoding.EncodeToString(publicKey))
	return nil
}
