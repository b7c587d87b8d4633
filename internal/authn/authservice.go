package authn

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/appetiteclub/apt"
	authpkg "github.com/appetiteclub/apt/auth"
	"github.com/google/uuid"

	"github.com/printdesk/printdesk/internal/invite"
)

// Identity errors map one-to-one onto the messages the sign-in and
// registration screens show; anything else falls through to a generic
// failure.
var (
	ErrInvalidEmail  = errors.New("invalid email address")
	ErrUnknownUser   = errors.New("unknown user")
	ErrWrongPassword = errors.New("wrong password")
	ErrEmailTaken    = errors.New("email already registered")
	ErrWeakPassword  = errors.New("password is too weak")
	ErrInvalidInvite = errors.New("invalid or consumed invite code")
)

const minPasswordLength = 6

// InviteConsumer is the slice of the invite service registration needs.
type InviteConsumer interface {
	Consume(ctx context.Context, code string) (*invite.Invite, error)
	Reinstate(ctx context.Context, inv *invite.Invite)
}

// SignUpUser registers a new account. Registration is invite-gated: the
// code is claimed atomically before the account is created, and put back
// best-effort if creation then fails.
func SignUpUser(ctx context.Context, repo UserRepo, invites InviteConsumer, config *apt.Config, email, password, inviteCode string) (*User, string, error) {
	if repo == nil {
		return nil, "", errors.New("user repository is required")
	}
	if config == nil {
		return nil, "", errors.New("configuration is required")
	}

	normalizedEmail := authpkg.NormalizeEmail(email)
	if !validEmail(normalizedEmail) {
		return nil, "", ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return nil, "", ErrWeakPassword
	}

	encryptionKeyStr, _ := config.GetString("auth.encryption.key")
	signingKeyStr, _ := config.GetString("auth.signing.key")
	encryptionKey := []byte(encryptionKeyStr)
	signingKey := []byte(signingKeyStr)

	emailLookup := authpkg.ComputeLookupHash(normalizedEmail, signingKey)

	existing, err := repo.GetByEmailLookup(ctx, emailLookup)
	if err != nil {
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return nil, "", ErrEmailTaken
	}

	var claimed *invite.Invite
	if invites != nil {
		claimed, err = invites.Consume(ctx, strings.TrimSpace(inviteCode))
		if err != nil {
			if errors.Is(err, invite.ErrInviteNotFound) {
				return nil, "", ErrInvalidInvite
			}
			return nil, "", fmt.Errorf("consume invite: %w", err)
		}
	}

	user, err := createUser(ctx, repo, normalizedEmail, password, encryptionKey, signingKey)
	if err != nil {
		if invites != nil {
			invites.Reinstate(ctx, claimed)
		}
		return nil, "", err
	}

	token, err := generateSessionToken(config, user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("generate session token: %w", err)
	}

	return user, token, nil
}

func createUser(ctx context.Context, repo UserRepo, normalizedEmail, password string, encryptionKey, signingKey []byte) (*User, error) {
	encryptedEmail, err := authpkg.EncryptEmail(normalizedEmail, encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encrypt email: %w", err)
	}

	salt := authpkg.GeneratePasswordSalt()
	passwordHash := authpkg.HashPassword([]byte(password), salt)

	user := NewUser()
	user.EmailCT = encryptedEmail.Ciphertext
	user.EmailIV = encryptedEmail.IV
	user.EmailTag = encryptedEmail.Tag
	user.EmailLookup = authpkg.ComputeLookupHash(normalizedEmail, signingKey)
	user.PasswordHash = passwordHash
	user.PasswordSalt = salt
	user.BeforeCreate()

	if err := repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// SignInUser authenticates by email and password and mints a session
// token.
func SignInUser(ctx context.Context, repo UserRepo, config *apt.Config, email, password string) (*User, string, error) {
	if repo == nil {
		return nil, "", errors.New("user repository is required")
	}
	if config == nil {
		return nil, "", errors.New("configuration is required")
	}

	normalizedEmail := authpkg.NormalizeEmail(email)
	if !validEmail(normalizedEmail) {
		return nil, "", ErrInvalidEmail
	}

	signingKeyStr, _ := config.GetString("auth.signing.key")
	signingKey := []byte(signingKeyStr)
	emailLookup := authpkg.ComputeLookupHash(normalizedEmail, signingKey)

	user, err := repo.GetByEmailLookup(ctx, emailLookup)
	if err != nil {
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return nil, "", ErrUnknownUser
	}

	if !authpkg.VerifyPasswordHash([]byte(password), user.PasswordHash, user.PasswordSalt) {
		return nil, "", ErrWrongPassword
	}

	token, err := generateSessionToken(config, user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("generate session token: %w", err)
	}

	return user, token, nil
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}

func generateSessionToken(config *apt.Config, userID uuid.UUID) (string, error) {
	sessionTTLStr, _ := config.GetString("auth.session.ttl")
	ttl, err := time.ParseDuration(sessionTTLStr)
	if err != nil {
		ttl = 24 * time.Hour
	}

	tokenKeyStr, _ := config.GetString("auth.token.key.private")
	privateKey, err := tokenPrivateKey(tokenKeyStr)
	if err != nil {
		return "", fmt.Errorf("get private key: %w", err)
	}

	sessionID := uuid.New().String()

	return authpkg.GenerateSessionToken(userID.String(), sessionID, privateKey, ttl)
}

func tokenPrivateKey(encoded string) (ed25519.PrivateKey, error) {
	if encoded != "" {
		keyBytes, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("decode private key: %w", err)
		}
		return ed25519.PrivateKey(keyBytes), nil
	}

	_, privateKey, err := authpkg.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("generate key pair: %w", err)
	}
	return privateKey, nil
}
