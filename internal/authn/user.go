package authn

import (
	"context"
	"time"

	"github.com/appetiteclub/apt"
	authpkg "github.com/appetiteclub/apt/auth"
	"github.com/google/uuid"
)

// User is the aggregate root for the identity domain. The email is
// stored encrypted with a keyed lookup hash so the plaintext never
// reaches the store.
type User struct {
	ID           uuid.UUID          `json:"id" bson:"_id"`
	EmailCT      []byte             `json:"-" bson:"email_ct"`
	EmailIV      []byte             `json:"-" bson:"email_iv"`
	EmailTag     []byte             `json:"-" bson:"email_tag"`
	EmailLookup  []byte             `json:"-" bson:"email_lookup"`
	PasswordHash []byte             `json:"-" bson:"pass_hash"`
	PasswordSalt []byte             `json:"-" bson:"pass_salt"`
	Status       authpkg.UserStatus `json:"status" bson:"status"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updated_at"`
}

// NewUser creates a new User with a generated ID.
func NewUser() *User {
	return &User{
		ID:     apt.GenerateNewID(),
		Status: authpkg.UserStatusActive,
	}
}

// EnsureID ensures the aggregate root has a valid ID.
func (u *User) EnsureID() {
	if u.ID == uuid.Nil {
		u.ID = apt.GenerateNewID()
	}
}

// BeforeCreate sets creation timestamps.
func (u *User) BeforeCreate() {
	u.EnsureID()
	u.CreatedAt = time.Now()
	u.UpdatedAt = time.Now()
}

// UserRepo is the store surface the identity operations need.
type UserRepo interface {
	Create(ctx context.Context, user *User) error
	GetByEmailLookup(ctx context.Context, lookup []byte) (*User, error)
}
