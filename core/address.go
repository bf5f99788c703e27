package core

import (
	"encoding/hex"
	"fmt"
)

const (
	// AddressLength is the expected length of an account address in bytes.
	AddressLength = 20
	// HashLength is the expected length of a hash or topic in bytes.
	HashLength = 32
)

// Address is a 20-byte account address.
type Address [AddressLength]byte

// Hash is a 32-byte hash, used here for log topics.
type Hash [HashLength]byte

// AddressFromBytes converts b into an Address, rejecting any other length.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressLength {
		return a, fmt.Errorf("invalid address length %d, want %d", len(b), AddressLength)
	}
	copy(a[:], b)
	return a, nil
}

// HashFromBytes converts b into a Hash, rejecting any other length.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashLength {
		return h, fmt.Errorf("invalid hash length %d, want %d", len(b), HashLength)
	}
	copy(h[:], b)
	return h, nil
}

// Bytes returns the address as a freshly allocated slice.
func (a Address) Bytes() []byte { return append([]byte(nil), a[:]...) }

// Hex returns the 0x-prefixed hex encoding of the address.
func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

// Bytes returns the hash as a freshly allocated slice.
func (h Hash) Bytes() []byte { return append([]byte(nil), h[:]...) }

// Hex returns the 0x-prefixed hex encoding of the hash.
func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }
