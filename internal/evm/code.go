package evm

import "golang.org/x/crypto/sha3"

// CodeHash returns the keccak256 hash of contract bytecode.
func CodeHash(code []byte) Hash {
	var h Hash
	k := sha3.NewLegacyKeccak256()
	k.Write(code)
	copy(h[:], k.Sum(nil))
	return h
}
