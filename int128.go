// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package pof

import "math/big"

// RawInt128 is an immutable two's-complement 128-bit integer represented as
// a magnitude byte array (big-endian, most significant first) plus a sign.
// A zero value is any magnitude whose bytes are all zero, regardless of the
// sign flag.
//
// math/big is used only for the packed-128 codec below; no third-party
// library in the example pack offers arbitrary-precision integer arithmetic,
// so this one case falls back to the standard library (see DESIGN.md).
type RawInt128 struct {
	Magnitude  []byte
	IsNegative bool
}

// NewRawInt128 builds a RawInt128 from a big-endian magnitude and sign.
func NewRawInt128(magnitude []byte, isNegative bool) RawInt128 {
	return RawInt128{Magnitude: magnitude, IsNegative: isNegative}
}

// RawInt128FromBigInt converts a math/big.Int into its magnitude/sign form.
func RawInt128FromBigInt(v *big.Int) RawInt128 {
	return RawInt128{Magnitude: v.Bytes(), IsNegative: v.Sign() < 0}
}

// BigInt reconstructs the signed value as a math/big.Int.
func (r RawInt128) BigInt() *big.Int {
	v := new(big.Int).SetBytes(r.Magnitude)
	if r.IsNegative {
		v.Neg(v)
	}
	return v
}

// IsZero reports whether the magnitude is all-zero bytes (equivalently,
// empty), regardless of the sign flag.
func (r RawInt128) IsZero() bool {
	for _, b := range r.Magnitude {
		if b != 0 {
			return false
		}
	}
	return true
}

// EncodePackedRawInt128 packs the magnitude as a big-endian value streamed
// LSB-first: the first byte carries the sign at 0x40 and a continuation bit
// at 0x80 over six payload bits, exactly like the 32/64-bit packed format;
// further bytes carry seven payload bits and a continuation bit. Leading
// all-zero magnitude bytes are skipped by virtue of big.Int's canonical
// (no leading zero) byte representation. A zero magnitude emits a single
// byte equal to the sign bit and no continuation.
func EncodePackedRawInt128(v RawInt128) []byte {
	m := new(big.Int).SetBytes(v.Magnitude)
	if m.Sign() == 0 {
		var b byte
		if v.IsNegative {
			b = packedSignMask
		}
		return []byte{b}
	}
	mask6 := big.NewInt(packedFirst6)
	mask7 := big.NewInt(packedNext7)
	low := new(big.Int).And(m, mask6)
	b := byte(low.Int64())
	m.Rsh(m, 6)
	if v.IsNegative {
		b |= packedSignMask
	}
	if m.Sign() != 0 {
		b |= packedContMask
	}
	out := []byte{b}
	for m.Sign() != 0 {
		low = new(big.Int).And(m, mask7)
		b = byte(low.Int64())
		m.Rsh(m, 7)
		if m.Sign() != 0 {
			b |= packedContMask
		}
		out = append(out, b)
	}
	return out
}

// DecodePackedRawInt128 reads the packed 128-bit encoding from src,
// assembling the bits MSB-first into the resulting magnitude.
func DecodePackedRawInt128(src packedByteSource) (RawInt128, error) {
	b, err := src.readPackedSourceByte()
	if err != nil {
		return RawInt128{}, err
	}
	sign := b&packedSignMask != 0
	cont := b&packedContMask != 0
	m := big.NewInt(int64(b & packedFirst6))
	shift := uint(6)
	for cont {
		b, err = src.readPackedSourceByte()
		if err != nil {
			return RawInt128{}, err
		}
		cont = b&packedContMask != 0
		chunk := new(big.Int).Lsh(big.NewInt(int64(b&packedNext7)), shift)
		m.Or(m, chunk)
		shift += 7
	}
	return RawInt128{Magnitude: m.Bytes(), IsNegative: sign}, nil
}
