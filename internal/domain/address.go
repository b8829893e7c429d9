package domain

import (
	"errors"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ErrInvalidAddress is returned for strings that are not 20-byte hex accounts.
var ErrInvalidAddress = errors.New("invalid account address")

// ZeroAddress is the all-zero account, used by preview identities.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// NormalizeAddress returns the EIP-55 checksummed form of a 0x-prefixed hex
// account. Input casing is ignored.
func NormalizeAddress(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if len(s) != 42 || (s[:2] != "0x" && s[:2] != "0X") {
		return "", ErrInvalidAddress
	}
	lower := strings.ToLower(s[2:])
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", ErrInvalidAddress
		}
	}

	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(lower))
	digest := hasher.Sum(nil)

	out := []byte(lower)
	for i, c := range out {
		if c < 'a' {
			continue
		}
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if nibble >= 8 {
			out[i] = c - ('a' - 'A')
		}
	}
	return "0x" + string(out), nil
}

// SameAddress compares two accounts ignoring case. Invalid input never matches.
func SameAddress(a, b string) bool {
	na, err := NormalizeAddress(a)
	if err != nil {
		return false
	}
	nb, err := NormalizeAddress(b)
	if err != nil {
		return false
	}
	return na == nb
}
