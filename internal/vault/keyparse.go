package vault

import (
	"crypto/ed25519"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/tyler-smith/go-bip39"
)

// Word counts accepted for BIP39 recovery phrases.
var validWordCounts = map[int]bool{12: true, 15: true, 18: true, 21: true, 24: true}

// ParseSecret validates user key input and derives a keypair from it.
// Two forms are accepted: a bracket-delimited recovery phrase
// ("[word word ...]", commas optional) or a raw base58-encoded secret
// (64-byte private key or 32-byte seed).
//
// The raw input is not retained beyond this call. Errors never echo the
// input back.
func ParseSecret(input string) (*Keypair, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrInvalidKeyFormat
	}

	if strings.HasPrefix(input, "[") {
		return parseRecoveryPhrase(input)
	}
	return parseBase58Secret(input)
}

// parseRecoveryPhrase handles the bracket-delimited mnemonic form.
// Structural defects (missing bracket, wrong word count, non-letter tokens)
// are format errors; a well-formed phrase with a bad checksum is a
// derivation error.
func parseRecoveryPhrase(input string) (*Keypair, error) {
	if !strings.HasSuffix(input, "]") {
		return nil, fmt.Errorf("%w: unterminated word list", ErrInvalidKeyFormat)
	}

	body := strings.TrimSuffix(strings.TrimPrefix(input, "["), "]")
	body = strings.ReplaceAll(body, ",", " ")

	words := strings.Fields(strings.ToLower(body))
	if !validWordCounts[len(words)] {
		return nil, fmt.Errorf("%w: unsupported word count", ErrInvalidKeyFormat)
	}
	for _, w := range words {
		for _, r := range w {
			if r < 'a' || r > 'z' {
				return nil, fmt.Errorf("%w: word list contains non-letter characters", ErrInvalidKeyFormat)
			}
		}
	}

	mnemonic := strings.Join(words, " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("%w: mnemonic checksum", ErrKeyDerivation)
	}

	seed := bip39.NewSeed(mnemonic, "")
	defer Zeroize(seed)

	return newKeypairFromSeed(seed[:ed25519.SeedSize])
}

// parseBase58Secret handles the raw base58 form.
func parseBase58Secret(input string) (*Keypair, error) {
	raw, err := base58.Decode(input)
	if err != nil {
		return nil, fmt.Errorf("%w: not base58", ErrInvalidKeyFormat)
	}
	defer Zeroize(raw)

	switch len(raw) {
	case ed25519.PrivateKeySize:
		return NewKeypairFromSecret(raw)
	case ed25519.SeedSize:
		return newKeypairFromSeed(raw)
	default:
		return nil, fmt.Errorf("%w: decoded length %d", ErrInvalidKeyFormat, len(raw))
	}
}
