// Package auth issues and verifies the signed session tokens handed to chat
// clients. Tokens are EdDSA (Ed25519) JWTs carrying the account identity.
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hildxd/chat-server/internal/common"
	"github.com/hildxd/chat-server/internal/server/models"
)

const (
	Issuer   = "chat_server"
	Audience = "chat_web"
	// TokenTTL is how long a token stays valid after issue: 7 days.
	TokenTTL = 604800 * time.Second
)

var ErrKeyMaterial = errors.New("invalid key material")

// Claims is the JWT payload. Identity fields sit at the top level next to
// the registered claims.
type Claims struct {
	ID       int64  `json:"id"`
	FullName string `json:"fullname"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

type options struct {
	now    func() time.Time
	leeway time.Duration
}

type Option func(*options)

// WithClock overrides the time source used for iat/exp and validation.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLeeway allows for clock skew when checking exp and nbf.
func WithLeeway(d time.Duration) Option {
	return func(o *options) { o.leeway = d }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// TokenIssuer signs tokens with an Ed25519 private key.
type TokenIssuer struct {
	key ed25519.PrivateKey
	now func() time.Time
}

// NewIssuer parses a PKCS#8 PEM encoded Ed25519 private key.
func NewIssuer(privatePEM []byte, opts ...Option) (*TokenIssuer, error) {
	k, err := jwt.ParseEdPrivateKeyFromPEM(privatePEM)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyMaterial, err)
	}
	key, ok := k.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an ed25519 private key", ErrKeyMaterial)
	}

	o := buildOptions(opts)
	return &TokenIssuer{key: key, now: o.now}, nil
}

// Sign issues a token for identity. Errors wrap common.ErrSigning.
func (i *TokenIssuer) Sign(identity models.AuthenticatedIdentity) (string, error) {
	now := i.now().UTC().Truncate(time.Second)

	claims := Claims{
		ID:       identity.ID,
		FullName: identity.FullName,
		Email:    identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrSigning, err)
	}
	return token, nil
}

// TokenVerifier checks tokens against an Ed25519 public key. It can be built
// on hosts that never hold the private key.
type TokenVerifier struct {
	key    ed25519.PublicKey
	parser *jwt.Parser
}

// NewVerifier parses a PKIX PEM encoded Ed25519 public key.
func NewVerifier(publicPEM []byte, opts ...Option) (*TokenVerifier, error) {
	k, err := jwt.ParseEdPublicKeyFromPEM(publicPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyMaterial, err)
	}
	key, ok := k.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an ed25519 public key", ErrKeyMaterial)
	}

	o := buildOptions(opts)
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithAudience(Audience),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(o.now),
		jwt.WithLeeway(o.leeway),
	)

	return &TokenVerifier{key: key, parser: parser}, nil
}

// Verify validates token and returns the identity it carries. Every failure
// wraps common.ErrInvalidToken.
func (v *TokenVerifier) Verify(token string) (*models.AuthenticatedIdentity, error) {
	claims := &Claims{}

	parsed, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, common.ErrInvalidToken
	}

	return &models.AuthenticatedIdentity{
		ID:       claims.ID,
		FullName: claims.FullName,
		Email:    claims.Email,
	}, nil
}
