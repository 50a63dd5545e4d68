package multisig

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"slices"

	"github.com/btcsuite/btcd/btcec/v2"
)

// PublicKey is a compressed secp256k1 point.
type PublicKey [btcec.PubKeyBytesLenCompressed]byte

// ParsePublicKey copies b into a PublicKey after checking it is a compressed
// point on the curve.
func ParsePublicKey(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != len(pk) {
		return pk, newError(ErrInvalidPublicKey,
			fmt.Sprintf("public key is %d bytes, want %d", len(b), len(pk)), nil)
	}
	if _, err := btcec.ParsePubKey(b); err != nil {
		return pk, newError(ErrInvalidPublicKey, "public key is not on the curve", err)
	}
	copy(pk[:], b)
	return pk, nil
}

// ParsePublicKeyHex is ParsePublicKey for hex input.
func ParsePublicKeyHex(s string) (PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return PublicKey{}, newError(ErrInvalidPublicKey, "public key is not hex", err)
	}
	return ParsePublicKey(b)
}

func (pk PublicKey) String() string {
	return hex.EncodeToString(pk[:])
}

// SortPublicKeys returns a and b in unsigned byte-wise lexicographic order.
func SortPublicKeys(a, b PublicKey) (PublicKey, PublicKey) {
	if bytes.Compare(a[:], b[:]) > 0 {
		return b, a
	}
	return a, b
}

// SortedPublicKeys returns a sorted copy of keys.
func SortedPublicKeys(keys []PublicKey) []PublicKey {
	sorted := slices.Clone(keys)
	slices.SortStableFunc(sorted, func(a, b PublicKey) int {
		return bytes.Compare(a[:], b[:])
	})
	return sorted
}
