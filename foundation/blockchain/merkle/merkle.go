// Copyright 2017 Cameron Bergoon
// Licensed under the MIT License, see LICENCE file for details.
//
// This code has been cleaned up, refactored and adapted for notebook use.

// Package merkle provides a binary merkle tree over hashable values. An odd
// node at the end of a level is promoted to the next level unchanged rather
// than being paired with a copy of itself. Proofs carry the sibling hashes,
// the number of leaves and the leaf index so they can be checked without the
// tree.
package merkle

import (
	"bytes"
	"errors"
	"fmt"
	"hash"

	"golang.org/x/crypto/blake2b"
)

// ErrNoContent is returned when a tree is constructed without any values.
var ErrNoContent = errors.New("cannot construct tree with no content")

// Hashable represents the behavior concrete data must exhibit to be used in
// the merkle tree. Hash returns the leaf hash of the value.
type Hashable[T any] interface {
	Hash() ([]byte, error)
	Equals(other T) bool
}

// Blake2b256 is the default hash strategy used to combine two nodes.
func Blake2b256() hash.Hash {
	h, _ := blake2b.New256(nil)
	return h
}

// =============================================================================

// Tree represents a merkle tree that uses data of some type T that exhibits the
// behavior defined by the Hashable constraint.
type Tree[T Hashable[T]] struct {
	Root         *Node[T]
	Leafs        []*Node[T]
	MerkleRoot   []byte
	hashStrategy func() hash.Hash
}

// WithHashStrategy is used to change the default hash strategy of using
// blake2b-256 when constructing a new tree.
func WithHashStrategy[T Hashable[T]](hashStrategy func() hash.Hash) func(t *Tree[T]) {
	return func(t *Tree[T]) {
		t.hashStrategy = hashStrategy
	}
}

// NewTree constructs a new merkle tree that uses data of some type T that
// exhibits the behavior defined by the Hashable interface.
func NewTree[T Hashable[T]](values []T, options ...func(t *Tree[T])) (*Tree[T], error) {
	var defaultHashStrategy = Blake2b256

	t := Tree[T]{
		hashStrategy: defaultHashStrategy,
	}

	for _, option := range options {
		option(&t)
	}

	if err := t.Generate(values); err != nil {
		return nil, err
	}

	return &t, nil
}

// Generate constructs the leafs and nodes of the tree from the specified
// data. If the tree has been generated previously, the tree is re-generated
// from scratch.
func (t *Tree[T]) Generate(values []T) error {
	if len(values) == 0 {
		return ErrNoContent
	}

	var leafs []*Node[T]
	for i, value := range values {
		hash, err := value.Hash()
		if err != nil {
			return fmt.Errorf("hashing leaf %d: %w", i, err)
		}

		leafs = append(leafs, &Node[T]{
			Hash:  hash,
			Value: value,
			leaf:  true,
			Tree:  t,
		})
	}

	root := buildIntermediate(leafs, t)

	t.Root = root
	t.Leafs = leafs
	t.MerkleRoot = root.Hash

	return nil
}

// Verify validates the hashes at each level of the tree and returns an error
// if the resulting hash at the root of the tree doesn't match the hash of the
// merkle root.
func (t *Tree[T]) Verify() error {
	calculatedMerkleRoot := t.Root.verify()

	if !bytes.Equal(t.MerkleRoot, calculatedMerkleRoot) {
		return errors.New("root hash invalid")
	}

	return nil
}

// VerifyData indicates whether a given piece of data is in the tree and the
// hashes are valid for that data.
func (t *Tree[T]) VerifyData(data T) error {
	for _, l := range t.Leafs {
		if !l.Value.Equals(data) {
			continue
		}

		proof, err := t.Proof(data)
		if err != nil {
			return err
		}

		if !VerifyProof(t.hashStrategy, t.MerkleRoot, l.Hash, proof) {
			return errors.New("proof does not match the root")
		}

		return nil
	}

	return errors.New("value not found")
}

// Proof returns the set of hashes needed to rebuild the merkle root from the
// specified data. The hashes are ordered from the leaf level upward.
func (t *Tree[T]) Proof(data T) (Proof, error) {
	for i, node := range t.Leafs {
		if !node.Value.Equals(data) {
			continue
		}

		return t.ProofAt(i)
	}

	return Proof{}, errors.New("unable to find data in tree")
}

// ProofAt returns the proof for the leaf at the specified index.
func (t *Tree[T]) ProofAt(index int) (Proof, error) {
	if index < 0 || index >= len(t.Leafs) {
		return Proof{}, fmt.Errorf("leaf index %d out of range", index)
	}

	proof := Proof{
		NumberOfLeaves: uint32(len(t.Leafs)),
		LeafIndex:      uint32(index),
	}

	node := t.Leafs[index]
	for node.Parent != nil {
		sibling := node.Parent.Left
		if sibling == node {
			sibling = node.Parent.Right
		}

		proof.Hashes = append(proof.Hashes, sibling.Hash)
		node = node.Parent
	}

	return proof, nil
}

// =============================================================================

// Proof is a self contained inclusion proof for one leaf.
type Proof struct {
	Hashes         [][]byte
	NumberOfLeaves uint32
	LeafIndex      uint32
}

// VerifyProof rebuilds the root from the leaf hash and the proof and reports
// whether it matches the expected root. A nil hash strategy uses blake2b-256.
func VerifyProof(hashStrategy func() hash.Hash, root []byte, leaf []byte, proof Proof) bool {
	if hashStrategy == nil {
		hashStrategy = Blake2b256
	}

	if proof.NumberOfLeaves == 0 || proof.LeafIndex >= proof.NumberOfLeaves {
		return false
	}

	pos := proof.LeafIndex
	width := proof.NumberOfLeaves
	hash := leaf
	next := 0

	for width > 1 {
		switch {
		case pos%2 == 1:
			if next >= len(proof.Hashes) {
				return false
			}
			hash = combine(hashStrategy, proof.Hashes[next], hash)
			next++

		case pos+1 < width:
			if next >= len(proof.Hashes) {
				return false
			}
			hash = combine(hashStrategy, hash, proof.Hashes[next])
			next++
		}

		pos /= 2
		width = (width + 1) / 2
	}

	return next == len(proof.Hashes) && bytes.Equal(hash, root)
}

// =============================================================================

// Node represents a node, root, or leaf in the tree. It stores pointers to
// its immediate relationships, a hash, the data if it is a leaf, and other
// metadata.
type Node[T Hashable[T]] struct {
	Tree   *Tree[T]
	Parent *Node[T]
	Left   *Node[T]
	Right  *Node[T]
	Hash   []byte
	Value  T
	leaf   bool
}

// verify walks down the tree until hitting a leaf, calculating the hash at
// each level and returning the resulting hash of the node.
func (n *Node[T]) verify() []byte {
	if n.leaf {
		return n.Hash
	}

	return combine(n.Tree.hashStrategy, n.Left.verify(), n.Right.verify())
}

// =============================================================================

// buildIntermediate is a helper function that for a given list of nodes
// constructs the intermediate and root levels of the tree. An odd node at the
// end of a level moves up a level as is.
func buildIntermediate[T Hashable[T]](nl []*Node[T], t *Tree[T]) *Node[T] {
	if len(nl) == 1 {
		return nl[0]
	}

	var nodes []*Node[T]
	for i := 0; i < len(nl); i += 2 {
		if i+1 == len(nl) {
			nodes = append(nodes, nl[i])
			continue
		}

		left, right := nl[i], nl[i+1]
		n := Node[T]{
			Left:  left,
			Right: right,
			Hash:  combine(t.hashStrategy, left.Hash, right.Hash),
			Tree:  t,
		}

		nodes = append(nodes, &n)
		left.Parent = &n
		right.Parent = &n
	}

	return buildIntermediate(nodes, t)
}

func combine(hashStrategy func() hash.Hash, left []byte, right []byte) []byte {
	h := hashStrategy()
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}
