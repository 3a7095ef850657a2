package clients

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/ruteri/name-registrar/interfaces"
	"golang.org/x/crypto/argon2"
)

// DeriveSecret derives a deterministic commitment secret from a passphrase
// using Argon2id. The normalized name and the owner are mixed into the salt
// so one passphrase yields unrelated secrets for different registrations.
func DeriveSecret(passphrase, name string, owner interfaces.Address) interfaces.Hash {
	salt := append([]byte("VNE-COMMIT-SECRET-"+strings.ToLower(name)+"-"), owner.Bytes()...)

	// Parameters: time=1, memory=64*1024, threads=4, keyLen=32
	key := argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, 32)

	var h interfaces.Hash
	copy(h[:], key)
	return h
}

// RandomSecret draws a fresh commitment secret.
func RandomSecret() (interfaces.Hash, error) {
	var h interfaces.Hash
	if _, err := rand.Read(h[:]); err != nil {
		return interfaces.Hash{}, fmt.Errorf("reading random secret: %w", err)
	}
	return h, nil
}
