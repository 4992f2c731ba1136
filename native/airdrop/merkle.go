package airdrop

import (
	"bytes"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// LeafHash computes the canonical Merkle leaf for a recipient allocation:
// keccak256(recipient || amount), with the amount encoded as a 32-byte
// big-endian integer. The offline tree builder must use the exact same
// encoding or no proof will ever verify.
func LeafHash(recipient [20]byte, amount *big.Int) ([32]byte, error) {
	if amount == nil || amount.Sign() <= 0 {
		return [32]byte{}, ErrInvalidAmount
	}
	encoded, overflow := uint256.FromBig(amount)
	if overflow {
		return [32]byte{}, ErrInvalidAmount
	}
	word := encoded.Bytes32()
	var leaf [32]byte = ethcrypto.Keccak256Hash(recipient[:], word[:])
	return leaf, nil
}

// hashPair combines two nodes in ascending byte order so proofs carry no
// left/right position flags.
func hashPair(a, b [32]byte) [32]byte {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return ethcrypto.Keccak256Hash(a[:], b[:])
	}
	return ethcrypto.Keccak256Hash(b[:], a[:])
}

// VerifyProof folds the leaf through the supplied sibling hashes and reports
// whether the result equals the committed root. An empty proof verifies only
// when the tree consists of the single claimed leaf.
func VerifyProof(proof [][32]byte, root, leaf [32]byte) bool {
	computed := leaf
	for _, sibling := range proof {
		computed = hashPair(computed, sibling)
	}
	return computed == root
}
