// Package checksum implements the 64-bit CRC used to derive session tags.
//
// The variant is CRC-64/ECMA-182 without reflection: polynomial
// 0x42F0E1EBA9EA3693, most significant bit first, zero initial register and no
// final XOR. The standard library's hash/crc64 ECMA table is the reflected
// variant and produces different values, so it cannot be used here. Both ends
// of a session must agree on every bit of this function.
package checksum

import "hash"

// Polynomial is the ECMA-182 generator polynomial in normal (MSB-first) form.
const Polynomial = 0x42F0E1EBA9EA3693

// Size is the size of a checksum in bytes.
const Size = 8

// Update returns the result of feeding p into a register holding crc.
func Update(crc uint64, p []byte) uint64 {
	for _, b := range p {
		crc ^= uint64(b) << 56
		for i := 0; i < 8; i++ {
			if crc&(1<<63) != 0 {
				crc = (crc << 1) ^ Polynomial
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// Checksum returns the checksum of p.
func Checksum(p []byte) uint64 {
	return Update(0, p)
}

type digest struct {
	crc uint64
}

// New returns a hash.Hash64 computing the checksum. Sum appends the value in
// big-endian order, which is also the on-the-wire tag layout.
func New() hash.Hash64 {
	return &digest{}
}

func (d *digest) Write(p []byte) (int, error) {
	d.crc = Update(d.crc, p)
	return len(p), nil
}

func (d *digest) Sum(in []byte) []byte {
	s := d.crc
	return append(in, byte(s>>56), byte(s>>48), byte(s>>40), byte(s>>32), byte(s>>24), byte(s>>16), byte(s>>8), byte(s))
}

func (d *digest) Sum64() uint64 { return d.crc }

func (d *digest) Reset() { d.crc = 0 }

func (d *digest) Size() int { return Size }

func (d *digest) BlockSize() int { return 1 }
