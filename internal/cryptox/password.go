// Package cryptox holds the credential hasher and Ed25519 key helpers.
package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/hildxd/chat-server/internal/common"
)

const argon2Version = argon2.Version // 0x13 == 19

// ErrInvalidHash reports a stored hash that cannot be parsed or whose
// parameters fall outside the accepted bounds.
var ErrInvalidHash = errors.New("invalid password hash")

// Argon2Params are the cost parameters written into every new hash.
type Argon2Params struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params yields 97-character PHC strings:
// $argon2id$v=19$m=19456,t=2,p=1$<22 chars>$<43 chars>.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		MemoryKiB:   19456,
		Iterations:  2,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// randRead is swapped in tests to simulate entropy failures.
var randRead = rand.Read

// Hasher produces and checks Argon2id password hashes in PHC string format.
// It holds only immutable parameters and is safe for concurrent use.
type Hasher struct {
	params Argon2Params
}

func NewHasher(params Argon2Params) *Hasher {
	return &Hasher{params: params}
}

// Params returns the parameters used for new hashes.
func (h *Hasher) Params() Argon2Params {
	return h.params
}

// Hash derives a fresh-salted Argon2id hash of password.
// Errors wrap common.ErrHashing.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := randRead(salt); err != nil {
		return "", fmt.Errorf("%w: salt: %w", common.ErrHashing, err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Iterations, h.params.MemoryKiB, h.params.Parallelism, h.params.KeyLength)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Version,
		h.params.MemoryKiB,
		h.params.Iterations,
		h.params.Parallelism,
		b64.EncodeToString(salt),
		b64.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encoded. A mismatch is (false, nil).
// A hash that cannot be parsed yields (false, err) where err wraps both
// common.ErrHashing and ErrInvalidHash.
func (h *Hasher) Verify(password, encoded string) (bool, error) {
	variant, params, salt, expected, err := decodeHash(encoded)
	if err != nil {
		return false, fmt.Errorf("%w: %w", common.ErrHashing, err)
	}

	if !withinBounds(params, h.params) {
		return false, fmt.Errorf("%w: %w: parameters out of range", common.ErrHashing, ErrInvalidHash)
	}

	var key []byte
	switch variant {
	case "argon2id":
		key = argon2.IDKey([]byte(password), salt, params.Iterations, params.MemoryKiB, params.Parallelism, params.KeyLength)
	case "argon2i":
		key = argon2.Key([]byte(password), salt, params.Iterations, params.MemoryKiB, params.Parallelism, params.KeyLength)
	}

	return subtle.ConstantTimeCompare(key, expected) == 1, nil
}

// withinBounds accepts hashes made with cheaper settings but rejects ones
// whose cost would exceed twice the configured parameters.
func withinBounds(got, limits Argon2Params) bool {
	switch {
	case got.MemoryKiB > limits.MemoryKiB*2:
		return false
	case got.Iterations > limits.Iterations*2:
		return false
	case got.Parallelism > limits.Parallelism*2:
		return false
	case got.SaltLength < 8 || got.SaltLength > 64:
		return false
	case got.KeyLength < 16 || got.KeyLength > 128:
		return false
	}
	return true
}

func decodeHash(encoded string) (string, Argon2Params, []byte, []byte, error) {
	var p Argon2Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return "", p, nil, nil, ErrInvalidHash
	}

	variant := parts[1]
	if variant != "argon2id" && variant != "argon2i" {
		return "", p, nil, nil, fmt.Errorf("%w: unsupported variant %q", ErrInvalidHash, variant)
	}

	if parts[2] != fmt.Sprintf("v=%d", argon2Version) {
		return "", p, nil, nil, fmt.Errorf("%w: unsupported version", ErrInvalidHash)
	}

	var mem, iter, par uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iter, &par); err != nil {
		return "", p, nil, nil, fmt.Errorf("%w: params: %w", ErrInvalidHash, err)
	}
	if mem == 0 || iter == 0 || par == 0 || par > 255 {
		return "", p, nil, nil, fmt.Errorf("%w: params out of range", ErrInvalidHash)
	}

	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return "", p, nil, nil, fmt.Errorf("%w: salt: %w", ErrInvalidHash, err)
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil {
		return "", p, nil, nil, fmt.Errorf("%w: key: %w", ErrInvalidHash, err)
	}

	p = Argon2Params{
		MemoryKiB:   mem,
		Iterations:  iter,
		Parallelism: uint8(par),
		SaltLength:  uint32(len(salt)),
		KeyLength:   uint32(len(key)),
	}
	return variant, p, salt, key, nil
}
