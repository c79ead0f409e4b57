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

// Packed signed integer format: the first byte carries a sign bit at mask
// 0x40, a continuation bit at mask 0x80, and six payload bits at mask 0x3F.
// Each subsequent byte, present only if the previous byte had 0x80 set,
// carries a continuation bit and seven payload bits.
const (
	packedSignMask = 0x40
	packedContMask = 0x80
	packedFirst6   = 0x3F
	packedNext7    = 0x7F

	maxPackedInt32Bytes = 5
	maxPackedInt64Bytes = 10
)

// encodePackedUint appends the packed encoding of the non-negative
// magnitude u (the already-complemented value when sign was set) to dst.
func encodePackedUint(dst []byte, u uint64, sign bool) []byte {
	b := byte(u & packedFirst6)
	u >>= 6
	if sign {
		b |= packedSignMask
	}
	if u != 0 {
		b |= packedContMask
	}
	dst = append(dst, b)
	for u != 0 {
		b = byte(u & packedNext7)
		u >>= 7
		if u != 0 {
			b |= packedContMask
		}
		dst = append(dst, b)
	}
	return dst
}

// EncodePackedInt32 returns the packed encoding of a 32-bit signed value.
// It occupies between 1 and 5 bytes.
func EncodePackedInt32(v int32) []byte {
	sign := v < 0
	var u uint32
	if sign {
		u = uint32(^v)
	} else {
		u = uint32(v)
	}
	return encodePackedUint(nil, uint64(u), sign)
}

// EncodePackedInt64 returns the packed encoding of a 64-bit signed value.
// It occupies between 1 and 10 bytes.
func EncodePackedInt64(v int64) []byte {
	sign := v < 0
	var u uint64
	if sign {
		u = uint64(^v)
	} else {
		u = uint64(v)
	}
	return encodePackedUint(nil, u, sign)
}

// packedByteSource abstracts the single-byte read needed to decode a packed
// integer; *ByteBuffer implements it.
type packedByteSource interface {
	readPackedSourceByte() (byte, error)
}

// decodePackedMagnitude reads the packed continuation chain from src,
// enforcing maxBytes as the width bound for the target type. It returns the
// reconstructed unsigned magnitude and whether the sign bit was set.
func decodePackedMagnitude(src packedByteSource, maxBytes int) (uint64, bool, error) {
	b, err := src.readPackedSourceByte()
	if err != nil {
		return 0, false, err
	}
	sign := b&packedSignMask != 0
	cont := b&packedContMask != 0
	u := uint64(b & packedFirst6)
	shift := uint(6)
	count := 1
	for cont {
		if count >= maxBytes {
			return 0, false, newMalformedDataError("packed integer continuation chain exceeds width bound")
		}
		b, err = src.readPackedSourceByte()
		if err != nil {
			return 0, false, err
		}
		cont = b&packedContMask != 0
		u |= uint64(b&packedNext7) << shift
		shift += 7
		count++
	}
	return u, sign, nil
}

// DecodePackedInt32 reads a packed 32-bit signed value from src.
func DecodePackedInt32(src packedByteSource) (int32, error) {
	u, sign, err := decodePackedMagnitude(src, maxPackedInt32Bytes)
	if err != nil {
		return 0, err
	}
	v := int64(u)
	if sign {
		v = ^v
	}
	if v > int64(MaxInt32) || v < int64(MinInt32) {
		return 0, newMalformedDataError("packed int32 overflow")
	}
	return int32(v), nil
}

// DecodePackedInt64 reads a packed 64-bit signed value from src.
func DecodePackedInt64(src packedByteSource) (int64, error) {
	u, sign, err := decodePackedMagnitude(src, maxPackedInt64Bytes)
	if err != nil {
		return 0, err
	}
	v := int64(u)
	if sign {
		v = ^v
	}
	return v, nil
}
