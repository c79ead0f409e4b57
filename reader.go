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

// readState is shared by a root PofReader and every nested reader spawned
// from it: the registry, and (when enabled) the refId-to-object slice that
// resolves back-references.
type readState struct {
	ctx        PofContext
	identities []interface{}
}

// PofReader is the mirror of PofWriter: it reads one user-type frame's
// properties by index, in ascending order. A request for an index other than
// the next one on the wire returns the zero value and consumes nothing, so
// properties the writer left out read as zero values.
//
// A frame opens by reading its typeId immediately (NewPofReader for the
// outermost frame, CreateNestedReader or ReadObject for a nested one); the
// version id is read lazily on first property access, mirroring
// PofWriter's lazy version write.
type PofReader struct {
	buf   *ByteBuffer
	state *readState

	typeId  TypeId
	version uint32

	versionRead bool
	peeked      bool
	nextIndex   int32
	ended       bool
}

// NewPofReader opens the outermost frame from buf, reading its typeId
// immediately.
func NewPofReader(buf *ByteBuffer, ctx PofContext) (*PofReader, error) {
	typeId, err := buf.ReadPackedInt32()
	if err != nil {
		return nil, err
	}
	return &PofReader{
		buf:    buf,
		typeId: typeId,
		state: &readState{
			ctx: ctx,
		},
	}, nil
}

// TypeId returns this frame's type id.
func (r *PofReader) TypeId() TypeId { return r.typeId }

// Version returns this frame's version id. It is only meaningful once the
// first property (or the remainder) has been read, since the version is
// read lazily off the wire; before that point it reads as zero.
func (r *PofReader) Version() uint32 { return r.version }

func (r *PofReader) ensureVersionRead() error {
	if r.versionRead {
		return nil
	}
	v, err := r.buf.ReadPackedInt32()
	if err != nil {
		return err
	}
	r.version = uint32(v)
	r.versionRead = true
	return nil
}

func (r *PofReader) ensurePeek() error {
	if err := r.ensureVersionRead(); err != nil {
		return err
	}
	if r.peeked || r.ended {
		return nil
	}
	idx, err := r.buf.ReadPackedInt32()
	if err != nil {
		return err
	}
	if idx == terminatorIndex {
		r.ended = true
		return nil
	}
	r.nextIndex = idx
	r.peeked = true
	return nil
}

// NextPropertyIndex peeks the index of the next unread property without
// consuming it, returning the terminator pseudo-index (-1) once the frame
// has no more properties.
func (r *PofReader) NextPropertyIndex() (int32, error) {
	if err := r.ensurePeek(); err != nil {
		return 0, err
	}
	if r.ended {
		return terminatorIndex, nil
	}
	return r.nextIndex, nil
}

// consumeIfMatches peeks and, only if the next property's index equals
// index, consumes that index token (leaving the payload for the caller to
// decode) and reports true.
func (r *PofReader) consumeIfMatches(index int32) (bool, error) {
	if err := r.ensurePeek(); err != nil {
		return false, err
	}
	if r.ended || r.nextIndex != index {
		return false, nil
	}
	r.peeked = false
	return true, nil
}

// ReadBool reads the bool property at index, or false if it is absent.
func (r *PofReader) ReadBool(index int32) (bool, error) {
	matched, err := r.consumeIfMatches(index)
	if err != nil || !matched {
		return false, err
	}
	return r.buf.ReadBool()
}

// ReadInt32 reads the packed int32 property at index, or zero if absent.
func (r *PofReader) ReadInt32(index int32) (int32, error) {
	matched, err := r.consumeIfMatches(index)
	if err != nil || !matched {
		return 0, err
	}
	return r.buf.ReadPackedInt32()
}

// ReadInt64 reads the packed int64 property at index, or zero if absent.
func (r *PofReader) ReadInt64(index int32) (int64, error) {
	matched, err := r.consumeIfMatches(index)
	if err != nil || !matched {
		return 0, err
	}
	return r.buf.ReadPackedInt64()
}

// ReadRawInt128 reads the packed 128-bit property at index, or the zero
// value if absent.
func (r *PofReader) ReadRawInt128(index int32) (RawInt128, error) {
	matched, err := r.consumeIfMatches(index)
	if err != nil || !matched {
		return RawInt128{}, err
	}
	return r.buf.ReadPackedRawInt128()
}

// ReadFloat32 reads the 4-byte float property at index, or zero if absent.
func (r *PofReader) ReadFloat32(index int32) (float32, error) {
	matched, err := r.consumeIfMatches(index)
	if err != nil || !matched {
		return 0, err
	}
	return r.buf.ReadFloat32()
}

// ReadFloat64 reads the 8-byte float property at index, or zero if absent.
func (r *PofReader) ReadFloat64(index int32) (float64, error) {
	matched, err := r.consumeIfMatches(index)
	if err != nil || !matched {
		return 0, err
	}
	return r.buf.ReadFloat64()
}

// ReadString reads the length-prefixed string property at index, or nil if
// absent.
func (r *PofReader) ReadString(index int32) (*string, error) {
	matched, err := r.consumeIfMatches(index)
	if err != nil || !matched {
		return nil, err
	}
	return r.buf.ReadString()
}

// ReadBinary reads the length-prefixed opaque byte blob property at index,
// or nil if absent.
func (r *PofReader) ReadBinary(index int32) ([]byte, error) {
	matched, err := r.consumeIfMatches(index)
	if err != nil || !matched {
		return nil, err
	}
	length, err := r.buf.ReadPackedInt32()
	if err != nil {
		return nil, err
	}
	if length == nullStringLength {
		return nil, nil
	}
	if length < 0 {
		return nil, newMalformedDataError("negative binary length that is not the null sentinel -1")
	}
	return r.buf.ReadBinary(int(length))
}

// ReadRemainder consumes and returns whatever trailing bytes this frame
// carries. It must be called once, after every property the caller
// recognizes has been read; any properties it did not ask for are folded
// into the returned slice as opaque future data.
func (r *PofReader) ReadRemainder() ([]byte, error) {
	// Peeking once strips the terminator token in the common case where the
	// caller has already consumed every property up to it. If an unread
	// property remains instead (one the caller's schema doesn't know),
	// ensurePeek has already consumed its index token, so its payload —
	// along with whatever follows, terminator included — becomes part of
	// the opaque tail this returns. Either way the result round-trips
	// byte-for-byte through a later WriteRemainder.
	if err := r.ensurePeek(); err != nil {
		return nil, err
	}
	return r.buf.ReadRemaining(), nil
}

// CreateNestedReader opens the nested frame at property index, reading its
// typeId immediately. The caller must eventually call ReadRemainder on the
// returned reader (or simply discard it, since the parent already consumed
// the whole length-prefixed blob up front).
func (r *PofReader) CreateNestedReader(index int32) (*PofReader, error) {
	matched, err := r.consumeIfMatches(index)
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, newUnknownTypeError(index)
	}
	nestedBuf, err := r.readLengthPrefixedFrame()
	if err != nil {
		return nil, err
	}
	nested := NewByteBuffer(nestedBuf)
	typeId, err := nested.ReadPackedInt32()
	if err != nil {
		return nil, err
	}
	return &PofReader{buf: nested, typeId: typeId, state: r.state}, nil
}

// ReadRawFrame reads the nested frame at property index without
// interpreting it, returning its complete encoded bytes (typeId, version,
// properties, terminator, and remainder all included) for verbatim replay.
// The hierarchical serializer uses this for a class frame whose typeId is
// not part of the current embedding chain.
func (r *PofReader) ReadRawFrame(index int32) ([]byte, error) {
	matched, err := r.consumeIfMatches(index)
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, nil
	}
	return r.readLengthPrefixedFrame()
}

// readLengthPrefixedFrame reads the packed int32 byte length PofWriter
// prefixes every nested frame with, then that many raw bytes.
func (r *PofReader) readLengthPrefixedFrame() ([]byte, error) {
	length, err := r.buf.ReadPackedInt32()
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, newMalformedDataError("negative nested frame length")
	}
	return r.buf.ReadBinary(int(length))
}

// RegisterIdentity records object as the next reference id in ascending
// assignment order, mirroring PofWriter.registerIdentity. PofWriter.WriteObject
// assigns reference ids in the order it first writes each referencable
// object; RegisterIdentity must be called for the decoded objects in that
// same order so that a later back reference resolves to the same object.
func (r *PofReader) RegisterIdentity(object interface{}) {
	r.state.identities = append(r.state.identities, object)
}

// ReadObject reads the object property at index: either a back-reference
// resolved against previously registered identities, or a nested frame
// dispatched to the type and serializer the reader's context resolves for
// the frame's typeId.
func (r *PofReader) ReadObject(index int32) (interface{}, error) {
	matched, err := r.consumeIfMatches(index)
	if err != nil || !matched {
		return nil, err
	}

	markerOrLength, err := r.buf.ReadPackedInt32()
	if err != nil {
		return nil, err
	}
	if markerOrLength == nullStringLength {
		return nil, nil
	}
	if markerOrLength == referenceTypeId {
		refId, err := r.buf.ReadPackedInt32()
		if err != nil {
			return nil, err
		}
		if int(refId) < 0 || int(refId) >= len(r.state.identities) {
			return nil, newMalformedDataError("reference id out of range")
		}
		return r.state.identities[refId], nil
	}

	// markerOrLength is this nested frame's byte length, per PofWriter's
	// length-prefixed nested-frame convention.
	if markerOrLength < 0 {
		return nil, newMalformedDataError("negative nested frame length")
	}
	nestedBytes, err := r.buf.ReadBinary(int(markerOrLength))
	if err != nil {
		return nil, err
	}
	nestedBuf := NewByteBuffer(nestedBytes)
	typeId, err := nestedBuf.ReadPackedInt32()
	if err != nil {
		return nil, err
	}
	nested := &PofReader{buf: nestedBuf, typeId: typeId, state: r.state}

	serializer, err := r.state.ctx.GetSerializer(typeId)
	if err != nil {
		return nil, err
	}
	value, err := serializer.Deserialize(nested)
	if err != nil {
		name := ""
		if t, terr := r.state.ctx.GetType(typeId); terr == nil {
			name = typeName(t)
		}
		return nil, wrapSerializerError(typeId, name, err)
	}
	return value, nil
}
