package service

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher turns passwords into stored digests and checks them.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
}

// BcryptHasher stores bcrypt digests. With AllowLegacyPlaintext set, digests
// that are not bcrypt hashes are treated as plaintext rows from credential
// files written before hashing was introduced.
type BcryptHasher struct {
	Cost                 int
	AllowLegacyPlaintext bool
}

func NewBcryptHasher(cost int, allowLegacyPlaintext bool) *BcryptHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{Cost: cost, AllowLegacyPlaintext: allowLegacyPlaintext}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (h *BcryptHasher) Verify(password, digest string) bool {
	if isBcrypt(digest) {
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
	}
	if !h.AllowLegacyPlaintext {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(digest)), []byte(password)) == 1
}

func isBcrypt(digest string) bool {
	_, err := bcrypt.Cost([]byte(digest))
	return err == nil
}

var _ PasswordHasher = (*BcryptHasher)(nil)
