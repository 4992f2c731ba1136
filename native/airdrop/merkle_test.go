package airdrop

import (
	"bytes"
	"math/big"
	"testing"
)

// buildTree constructs a sorted-pair Merkle tree over the supplied leaves and
// returns the root plus a proof per leaf index. Odd nodes are promoted to the
// next level unchanged, mirroring the offline tree builder.
func buildTree(leaves [][32]byte) ([32]byte, [][][32]byte) {
	if len(leaves) == 0 {
		return [32]byte{}, nil
	}
	proofs := make([][][32]byte, len(leaves))
	// position of each original leaf within the current level
	positions := make([]int, len(leaves))
	for i := range positions {
		positions[i] = i
	}
	level := append([][32]byte(nil), leaves...)
	for len(level) > 1 {
		next := make([][32]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, hashPair(level[i], level[i+1]))
		}
		for leaf, pos := range positions {
			sibling := pos ^ 1
			if sibling < len(level) {
				proofs[leaf] = append(proofs[leaf], level[sibling])
			}
			positions[leaf] = pos / 2
		}
		level = next
	}
	return level[0], proofs
}

func testAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func mustLeaf(t *testing.T, recipient [20]byte, amount int64) [32]byte {
	t.Helper()
	leaf, err := LeafHash(recipient, big.NewInt(amount))
	if err != nil {
		t.Fatalf("leaf hash: %v", err)
	}
	return leaf
}

func TestLeafHashRejectsBadAmounts(t *testing.T) {
	if _, err := LeafHash(testAddress(0x01), nil); err == nil {
		t.Fatal("expected error for nil amount")
	}
	if _, err := LeafHash(testAddress(0x01), big.NewInt(0)); err == nil {
		t.Fatal("expected error for zero amount")
	}
	if _, err := LeafHash(testAddress(0x01), big.NewInt(-5)); err == nil {
		t.Fatal("expected error for negative amount")
	}
	huge := new(big.Int).Lsh(big.NewInt(1), 256)
	if _, err := LeafHash(testAddress(0x01), huge); err == nil {
		t.Fatal("expected error for amount wider than 256 bits")
	}
}

func TestLeafHashDependsOnBothInputs(t *testing.T) {
	a := mustLeaf(t, testAddress(0x01), 10)
	if b := mustLeaf(t, testAddress(0x02), 10); a == b {
		t.Fatal("different recipients must produce different leaves")
	}
	if b := mustLeaf(t, testAddress(0x01), 11); a == b {
		t.Fatal("different amounts must produce different leaves")
	}
}

func TestVerifyProofSingleLeaf(t *testing.T) {
	leaf := mustLeaf(t, testAddress(0x01), 10)
	if !VerifyProof(nil, leaf, leaf) {
		t.Fatal("single-leaf tree must verify with an empty proof")
	}
	other := mustLeaf(t, testAddress(0x02), 20)
	if VerifyProof(nil, leaf, other) {
		t.Fatal("empty proof must not verify a different leaf")
	}
}

func TestVerifyProofTwoLeaves(t *testing.T) {
	leaves := [][32]byte{
		mustLeaf(t, testAddress(0x01), 10),
		mustLeaf(t, testAddress(0x02), 20),
	}
	root, proofs := buildTree(leaves)
	for i, leaf := range leaves {
		if !VerifyProof(proofs[i], root, leaf) {
			t.Fatalf("leaf %d must verify", i)
		}
	}
	// Proof for one leaf must not verify the other.
	if VerifyProof(proofs[0], root, leaves[1]) {
		t.Fatal("cross-pair proof must fail")
	}
	if VerifyProof(nil, root, leaves[0]) {
		t.Fatal("empty proof must fail against a two-leaf root")
	}
}

func TestVerifyProofLargerTrees(t *testing.T) {
	for _, size := range []int{3, 4, 5, 8} {
		leaves := make([][32]byte, size)
		for i := range leaves {
			leaves[i] = mustLeaf(t, testAddress(byte(i+1)), int64((i+1)*10))
		}
		root, proofs := buildTree(leaves)
		for i, leaf := range leaves {
			if !VerifyProof(proofs[i], root, leaf) {
				t.Fatalf("size %d: leaf %d must verify", size, i)
			}
		}
		// Tampering with any proof element must break verification.
		tampered := append([][32]byte(nil), proofs[0]...)
		tampered[0][0] ^= 0xFF
		if VerifyProof(tampered, root, leaves[0]) {
			t.Fatalf("size %d: tampered proof must fail", size)
		}
	}
}

func TestVerifyProofOrderIndependentPairs(t *testing.T) {
	a := mustLeaf(t, testAddress(0x01), 10)
	b := mustLeaf(t, testAddress(0x02), 20)
	if hashPair(a, b) != hashPair(b, a) {
		t.Fatal("pair hashing must sort its inputs")
	}
}
