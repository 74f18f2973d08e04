package executor

import (
	"fmt"

	"solana-trade-engine/internal/vault"
)

const signatureLen = 64

// decodeCompactU16 reads a compact-u16 length prefix (shortvec encoding,
// 7 bits per byte, little-endian). Returns the value and header width.
func decodeCompactU16(b []byte) (int, int, error) {
	value := 0
	for i := 0; i < 3; i++ {
		if i >= len(b) {
			return 0, 0, fmt.Errorf("truncated compact-u16")
		}
		value |= int(b[i]&0x7f) << (7 * i)
		if b[i]&0x80 == 0 {
			return value, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("compact-u16 too long")
}

// signTransaction signs a serialized transaction in place of its first
// signature slot. The wire layout is a compact-u16 signature count,
// the signature slots, then the message the signatures cover. The fee
// payer's signature occupies slot zero.
func signTransaction(tx []byte, kp *vault.Keypair) ([]byte, error) {
	numSigs, hdrLen, err := decodeCompactU16(tx)
	if err != nil {
		return nil, fmt.Errorf("parse transaction: %w", err)
	}
	if numSigs == 0 {
		return nil, fmt.Errorf("transaction reserves no signature slots")
	}

	msgStart := hdrLen + numSigs*signatureLen
	if len(tx) <= msgStart {
		return nil, fmt.Errorf("transaction shorter than its signature table")
	}

	signed := make([]byte, len(tx))
	copy(signed, tx)

	sig := kp.Sign(signed[msgStart:])
	copy(signed[hdrLen:hdrLen+signatureLen], sig)

	return signed, nil
}
