// Package vault owns secret key material: parsing user-supplied keys into
// keypairs and sealing them under a process-wide encryption key. Plaintext
// secrets exist only transiently inside this package and signing call sites.
package vault

import (
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/chacha20poly1305"
)

var (
	// ErrInvalidKeyFormat is returned when key input is neither a recovery
	// phrase nor a base58 secret.
	ErrInvalidKeyFormat = errors.New("invalid key format")

	// ErrKeyDerivation is returned when input parses syntactically but does
	// not yield a valid keypair.
	ErrKeyDerivation = errors.New("key derivation failed")

	// ErrDecryption is returned when ciphertext fails authenticated
	// decryption. It indicates tampering or corruption and is never
	// silently repaired.
	ErrDecryption = errors.New("decryption failed")
)

// KeySize is the required size of the vault encryption key in bytes.
const KeySize = chacha20poly1305.KeySize

// Vault seals and opens secret key material under a process-wide key.
// The key is provisioned at startup, read-only afterwards, and never
// derived from user input.
type Vault struct {
	aead cipher.AEAD
}

// New creates a vault from a 32-byte encryption key.
func New(key []byte) (*Vault, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("vault key must be %d bytes, got %d", KeySize, len(key))
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// Encrypt seals secret bytes with authenticated encryption.
// Output layout: nonce || ciphertext+tag.
func (v *Vault) Encrypt(secret []byte) ([]byte, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	sealed := v.aead.Seal(nil, nonce, secret, nil)
	out := make([]byte, 0, len(nonce)+len(sealed))
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out, nil
}

// Decrypt opens previously sealed secret bytes. A tampered or truncated
// ciphertext fails closed with ErrDecryption.
func (v *Vault) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < v.aead.NonceSize() {
		return nil, ErrDecryption
	}

	nonce := ciphertext[:v.aead.NonceSize()]
	secret, err := v.aead.Open(nil, nonce, ciphertext[v.aead.NonceSize():], nil)
	if err != nil {
		return nil, ErrDecryption
	}
	return secret, nil
}

// Keypair is an ed25519 signing keypair with its derived base58 address.
// The secret is kept unexported; call Zero when signing is done.
type Keypair struct {
	pub    ed25519.PublicKey
	secret ed25519.PrivateKey
}

// NewKeypairFromSecret reconstructs a keypair from a 64-byte ed25519
// private key, verifying internal consistency.
func NewKeypairFromSecret(secret []byte) (*Keypair, error) {
	if len(secret) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: secret must be %d bytes", ErrKeyDerivation, ed25519.PrivateKeySize)
	}

	priv := ed25519.PrivateKey(make([]byte, ed25519.PrivateKeySize))
	copy(priv, secret)

	// The trailing 32 bytes must match the key derived from the seed half.
	derived := ed25519.NewKeyFromSeed(priv.Seed())
	if !priv.Equal(derived) {
		return nil, fmt.Errorf("%w: public half does not match seed", ErrKeyDerivation)
	}

	return &Keypair{
		pub:    priv.Public().(ed25519.PublicKey),
		secret: priv,
	}, nil
}

// newKeypairFromSeed derives a keypair from a 32-byte seed.
func newKeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: seed must be %d bytes", ErrKeyDerivation, ed25519.SeedSize)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Keypair{
		pub:    priv.Public().(ed25519.PublicKey),
		secret: priv,
	}, nil
}

// Address returns the base58-encoded public key.
func (k *Keypair) Address() string {
	return base58.Encode(k.pub)
}

// Sign signs msg with the keypair's secret.
func (k *Keypair) Sign(msg []byte) []byte {
	return ed25519.Sign(k.secret, msg)
}

// SecretBytes returns the raw 64-byte private key for sealing.
// Callers must zeroize the returned slice after use.
func (k *Keypair) SecretBytes() []byte {
	out := make([]byte, len(k.secret))
	copy(out, k.secret)
	return out
}

// Zero wipes the keypair's secret material.
func (k *Keypair) Zero() {
	Zeroize(k.secret)
}

// Zeroize overwrites b with zeros.
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ValidateAddress checks that addr is a base58-encoded 32-byte value that
// decompresses to a point on the ed25519 curve.
func ValidateAddress(addr string) error {
	raw, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("%w: not base58", ErrInvalidKeyFormat)
	}
	if len(raw) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: address must decode to %d bytes", ErrInvalidKeyFormat, ed25519.PublicKeySize)
	}
	if _, err := new(edwards25519.Point).SetBytes(raw); err != nil {
		return fmt.Errorf("%w: not a curve point", ErrInvalidKeyFormat)
	}
	return nil
}
