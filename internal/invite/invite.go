package invite

import (
	"crypto/rand"
	"time"
)

// Invite is a single-use access code required to self-register an
// account. The code itself is the document id: existence is validity.
type Invite struct {
	Code      string    `bson:"_id" json:"code"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

const (
	codeLength  = 8
	codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// NewInvite creates an invite with a freshly random fixed-length
// alphanumeric code.
func NewInvite() *Invite {
	return &Invite{
		Code:      newCode(),
		CreatedAt: time.Now().UTC(),
	}
}

func newCode() string {
	buf := make([]byte, codeLength)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = codeCharset[int(b)%len(codeCharset)]
	}
	return string(buf)
}
