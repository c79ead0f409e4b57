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

import "reflect"

// referenceTypeId is the nested-frame typeId marker this implementation
// uses to encode a back-reference in place of a full nested-frame payload;
// it is followed by a single packed int32 reference id and carries no
// length prefix, no version, and no remainder. See DESIGN.md for the
// reasoning behind this choice.
const referenceTypeId TypeId = -2

// writeState is shared by a root PofWriter and every nested writer it
// spawns: the registry, and (when enabled) the identity-to-reference-id
// map that lets repeated objects be encoded as back-references.
type writeState struct {
	ctx               PofContext
	referencesEnabled bool
	identities        map[uintptr]int32
	nextRefId         int32
}

// PofWriter drives one user-type frame: property-indexed writes that must
// arrive in strictly ascending index order, terminated by WriteRemainder.
//
// A frame's packed typeId is written eagerly when the frame is opened
// (NewPofWriter for the outermost frame, CreateNestedWriter or WriteObject
// for a nested one); the packed version id is written lazily, just before
// the frame's first property (or its remainder, if it has none), so that
// Serializer implementations may call SetVersion as their first action.
//
// A nested frame (one with a non-nil parent) buffers its own bytes in a
// private scratch ByteBuffer; when WriteRemainder closes it, the whole
// buffered frame is copied into the parent as a length-prefixed blob. This
// makes every nested frame skippable by a reader that does not recognize
// its type id, which hierarchical evolvable serialization depends on to
// preserve an unknown class's frame as opaque future data.
type PofWriter struct {
	buf       *ByteBuffer
	state     *writeState
	lastIndex int32

	versionWritten bool
	pendingVersion uint32

	parent      *PofWriter
	parentIndex int32
	finished    bool
}

// NewPofWriter opens the outermost frame over buf for typeId, using ctx to
// resolve nested object types and (if ctx.ReferencesEnabled()) to track
// identity.
func NewPofWriter(buf *ByteBuffer, ctx PofContext, typeId TypeId) *PofWriter {
	refsEnabled := false
	if rc, ok := ctx.(interface{ ReferencesEnabled() bool }); ok {
		refsEnabled = rc.ReferencesEnabled()
	}
	buf.WritePackedInt32(typeId)
	return &PofWriter{
		buf:       buf,
		lastIndex: -1,
		state: &writeState{
			ctx:               ctx,
			referencesEnabled: refsEnabled,
			identities:        make(map[uintptr]int32),
		},
	}
}

// SetVersion sets the version id this frame will be written with. It must
// be called, if at all, before the first property write or WriteRemainder;
// afterwards it has no effect.
func (w *PofWriter) SetVersion(version uint32) {
	if !w.versionWritten {
		w.pendingVersion = version
	}
}

func (w *PofWriter) ensureVersionWritten() {
	if !w.versionWritten {
		w.buf.WritePackedInt32(int32(w.pendingVersion))
		w.versionWritten = true
	}
}

func (w *PofWriter) checkIndex(index int32) error {
	w.ensureVersionWritten()
	if index <= w.lastIndex {
		return newSequenceError(w.lastIndex, index)
	}
	w.lastIndex = index
	return nil
}

// WriteBool writes a bool property at index.
func (w *PofWriter) WriteBool(index int32, v bool) error {
	if err := w.checkIndex(index); err != nil {
		return err
	}
	w.buf.WritePackedInt32(index)
	w.buf.WriteBool(v)
	return nil
}

// WriteInt32 writes a packed int32 property at index.
func (w *PofWriter) WriteInt32(index int32, v int32) error {
	if err := w.checkIndex(index); err != nil {
		return err
	}
	w.buf.WritePackedInt32(index)
	w.buf.WritePackedInt32(v)
	return nil
}

// WriteInt64 writes a packed int64 property at index.
func (w *PofWriter) WriteInt64(index int32, v int64) error {
	if err := w.checkIndex(index); err != nil {
		return err
	}
	w.buf.WritePackedInt32(index)
	w.buf.WritePackedInt64(v)
	return nil
}

// WriteRawInt128 writes a packed 128-bit property at index.
func (w *PofWriter) WriteRawInt128(index int32, v RawInt128) error {
	if err := w.checkIndex(index); err != nil {
		return err
	}
	w.buf.WritePackedInt32(index)
	w.buf.WritePackedRawInt128(v)
	return nil
}

// WriteFloat32 writes a 4-byte float property at index.
func (w *PofWriter) WriteFloat32(index int32, v float32) error {
	if err := w.checkIndex(index); err != nil {
		return err
	}
	w.buf.WritePackedInt32(index)
	w.buf.WriteFloat32(v)
	return nil
}

// WriteFloat64 writes an 8-byte float property at index.
func (w *PofWriter) WriteFloat64(index int32, v float64) error {
	if err := w.checkIndex(index); err != nil {
		return err
	}
	w.buf.WritePackedInt32(index)
	w.buf.WriteFloat64(v)
	return nil
}

// WriteString writes a length-prefixed string property at index; a nil s
// writes the null sentinel.
func (w *PofWriter) WriteString(index int32, s *string) error {
	if err := w.checkIndex(index); err != nil {
		return err
	}
	w.buf.WritePackedInt32(index)
	w.buf.WriteString(s)
	return nil
}

// WriteBinary writes a length-prefixed opaque byte blob property at index.
// A nil data writes the null sentinel.
func (w *PofWriter) WriteBinary(index int32, data []byte) error {
	if err := w.checkIndex(index); err != nil {
		return err
	}
	w.buf.WritePackedInt32(index)
	if data == nil {
		w.buf.WritePackedInt32(nullStringLength)
		return nil
	}
	w.buf.WritePackedInt32(int32(len(data)))
	w.buf.WriteBinary(data)
	return nil
}

// WriteRemainder terminates the current frame with the terminator
// pseudo-index followed by the (possibly zero-length) remainder bytes. If
// this frame is nested, terminating it flushes the whole buffered frame
// into the parent as a length-prefixed blob at the index it was opened on.
func (w *PofWriter) WriteRemainder(remainder []byte) error {
	w.ensureVersionWritten()
	w.buf.WritePackedInt32(terminatorIndex)
	w.buf.WriteBinary(remainder)
	if w.parent != nil && !w.finished {
		w.finished = true
		nestedBytes := w.buf.Bytes()
		w.parent.buf.WritePackedInt32(w.parentIndex)
		w.parent.buf.WritePackedInt32(int32(len(nestedBytes)))
		w.parent.buf.WriteBinary(nestedBytes)
	}
	return nil
}

// CreateNestedWriter begins a nested user-type sub-frame as the payload of
// property index, keyed by nestedTypeId. The nested writer shares this
// writer's identity state; it must eventually be closed with
// WriteRemainder.
func (w *PofWriter) CreateNestedWriter(index int32, nestedTypeId TypeId) (*PofWriter, error) {
	if err := w.checkIndex(index); err != nil {
		return nil, err
	}
	scratch := NewByteBuffer(nil)
	scratch.WritePackedInt32(nestedTypeId)
	return &PofWriter{
		buf:         scratch,
		lastIndex:   -1,
		state:       w.state,
		parent:      w,
		parentIndex: index,
	}, nil
}

// WriteRawFrame splices an already-fully-encoded nested frame (typeId,
// version, properties, terminator, and remainder all already present in
// rawFrame) into property index, verbatim. The hierarchical serializer uses
// this to replay a class frame it cannot interpret — one present in an
// object's evolvable state but absent from its current embedding chain —
// without needing to understand its contents.
func (w *PofWriter) WriteRawFrame(index int32, rawFrame []byte) error {
	if err := w.checkIndex(index); err != nil {
		return err
	}
	w.buf.WritePackedInt32(index)
	w.buf.WritePackedInt32(int32(len(rawFrame)))
	w.buf.WriteBinary(rawFrame)
	return nil
}

// identityRefId returns the reference id already assigned to value's
// pointer identity, or (0, false) if it has not been seen yet.
func (w *PofWriter) identityRefId(value reflect.Value) (int32, bool) {
	if !w.state.referencesEnabled || value.Kind() != reflect.Ptr || value.IsNil() {
		return 0, false
	}
	id, ok := w.state.identities[value.Pointer()]
	return id, ok
}

// registerIdentity assigns the next reference id to value's pointer
// identity, returning the id assigned.
func (w *PofWriter) registerIdentity(value reflect.Value) int32 {
	id := w.state.nextRefId
	w.state.nextRefId++
	if value.Kind() == reflect.Ptr && !value.IsNil() {
		w.state.identities[value.Pointer()] = id
	}
	return id
}

// WriteObject resolves value's type against the writer's context, then
// either emits a back-reference (if references are enabled and value's
// identity has already been written) or a nested frame carrying the full
// payload produced by the resolved serializer.
//
// References are disabled automatically for any object whose type
// implements EvolvableObject, because preserving references through
// unknown future data is unsound.
func (w *PofWriter) WriteObject(index int32, value interface{}) error {
	if err := w.checkIndex(index); err != nil {
		return err
	}
	if value == nil {
		w.buf.WritePackedInt32(index)
		w.buf.WritePackedInt32(nullStringLength)
		return nil
	}
	rv := reflect.ValueOf(value)
	_, evolvable := value.(EvolvableObject)
	referencable := w.state.referencesEnabled && !evolvable

	if referencable {
		if refId, ok := w.identityRefId(rv); ok {
			w.buf.WritePackedInt32(index)
			w.buf.WritePackedInt32(referenceTypeId)
			w.buf.WritePackedInt32(refId)
			return nil
		}
	}

	elemType := rv.Type()
	if elemType.Kind() == reflect.Ptr {
		elemType = elemType.Elem()
	}
	typeId, err := w.state.ctx.GetUserTypeId(elemType)
	if err != nil {
		return err
	}
	serializer, err := w.state.ctx.GetSerializer(typeId)
	if err != nil {
		return err
	}

	if referencable {
		w.registerIdentity(rv)
	}

	scratch := NewByteBuffer(nil)
	scratch.WritePackedInt32(typeId)
	nested := &PofWriter{
		buf:            scratch,
		lastIndex:      -1,
		state:          w.state,
		parent:         w,
		parentIndex:    index,
		pendingVersion: objectVersion(typeId, value),
	}
	if err := serializer.Serialize(nested, value); err != nil {
		return wrapSerializerError(typeId, elemType.Name(), err)
	}
	if !nested.finished {
		return newIOError("serializer did not terminate its frame with WriteRemainder", nil)
	}
	return nil
}

// objectVersion returns the version a nested WriteObject frame should open
// at: when the object implements EvolvableObject, the higher of its per-type
// DataVersion and ImplVersion (Evolvable.EffectiveVersion); zero otherwise.
func objectVersion(typeId TypeId, value interface{}) uint32 {
	eo, ok := value.(EvolvableObject)
	if !ok {
		return 0
	}
	return eo.EvolvableHolder().Get(typeId).EffectiveVersion()
}
