// Package keystream implements the byte-oriented stream cipher that obfuscates
// relay traffic. It is RC4 (alleged ARC4), kept for compatibility with
// existing listeners.
//
// RC4 is cryptographically broken. It offers some confidentiality against a
// passive observer and nothing against an active one: no integrity, no replay
// protection, biased output. Do not reuse this package for anything that
// needs real security.
package keystream

import (
	"crypto/cipher"
	"errors"
)

// ErrEmptyKey is returned by New when the key has no bytes.
var ErrEmptyKey = errors.New("keystream: empty key")

// State is one direction's cipher state: a permutation of [0,255] and two
// indices. A State must only be advanced by one goroutine and must never be
// shared between the send and receive directions.
type State struct {
	i, j uint8
	s    [256]uint8
}

var _ cipher.Stream = &State{}

// New runs the key schedule over key and returns a fresh State.
func New(key []byte) (*State, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	st := new(State)
	for i := 0; i < 256; i++ {
		st.s[i] = uint8(i)
	}
	var j uint8
	for i := 0; i < 256; i++ {
		j += st.s[i] + key[i%len(key)]
		st.s[i], st.s[j] = st.s[j], st.s[i]
	}
	return st, nil
}

// Next advances the state and returns the next keystream byte.
func (st *State) Next() byte {
	st.i++
	st.j += st.s[st.i]
	st.s[st.i], st.s[st.j] = st.s[st.j], st.s[st.i]
	return st.s[st.s[st.i]+st.s[st.j]]
}

// XORKeyStream XORs each byte of src with the next keystream byte and stores
// the result in dst. dst and src may overlap entirely.
func (st *State) XORKeyStream(dst, src []byte) {
	if len(dst) < len(src) {
		panic("keystream: output smaller than input")
	}
	for k, b := range src {
		dst[k] = b ^ st.Next()
	}
}

// Table returns a copy of the current permutation.
func (st *State) Table() [256]byte {
	return st.s
}

// Indices returns the current (i, j) stream indices.
func (st *State) Indices() (i, j uint8) {
	return st.i, st.j
}
