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

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

type safeUnregisteredWidget struct {
	Label string
}

func (w *safeUnregisteredWidget) WriteExternal(writer *PofWriter) error {
	return writer.WriteString(0, &w.Label)
}

func (w *safeUnregisteredWidget) ReadExternal(reader *PofReader) error {
	label, err := reader.ReadString(0)
	if err != nil {
		return err
	}
	if label != nil {
		w.Label = *label
	}
	return nil
}

type safeUnregisteredPlain struct {
	Label string
}

// safeMarshaledGadget implements encoding.BinaryMarshaler/Unmarshaler
// instead of PortableObject, exercising the TypeSerializable fallback.
type safeMarshaledGadget struct {
	Count int32
}

func (g *safeMarshaledGadget) MarshalBinary() ([]byte, error) {
	return []byte(fmt.Sprintf("%d", g.Count)), nil
}

func (g *safeMarshaledGadget) UnmarshalBinary(data []byte) error {
	var n int32
	if _, err := fmt.Sscanf(string(data), "%d", &n); err != nil {
		return err
	}
	g.Count = n
	return nil
}

func TestSafeConfigContextSynthesizesPortableObjectType(t *testing.T) {
	safe := NewSafeConfigContext(NewSimplePofContext())

	id, err := safe.GetUserTypeId(reflect.TypeOf(safeUnregisteredWidget{}))
	require.NoError(t, err)
	require.Equal(t, TypePortable, id)
	require.True(t, safe.IsUserType(reflect.TypeOf(safeUnregisteredWidget{})))

	serializer, err := safe.GetSerializer(TypePortable)
	require.NoError(t, err)
	require.Equal(t, TypePortable, serializer.TypeId())
}

func TestSafeConfigContextSynthesizesNativeSerializableType(t *testing.T) {
	safe := NewSafeConfigContext(NewSimplePofContext())

	id, err := safe.GetUserTypeId(reflect.TypeOf(safeMarshaledGadget{}))
	require.NoError(t, err)
	require.Equal(t, TypeSerializable, id)

	serializer, err := safe.GetSerializer(TypeSerializable)
	require.NoError(t, err)
	require.Equal(t, TypeSerializable, serializer.TypeId())
}

func TestSafeConfigContextRejectsNonPortableType(t *testing.T) {
	safe := NewSafeConfigContext(NewSimplePofContext())

	_, err := safe.GetUserTypeId(reflect.TypeOf(safeUnregisteredPlain{}))
	require.Error(t, err)
	require.IsType(t, &UnknownTypeError{}, err)
}

func TestSafeConfigContextDefersToWrappedRegistration(t *testing.T) {
	base := NewSimplePofContext()
	serializer, err := NewAnnotationSerializer(42, reflect.TypeOf(safeUnregisteredPlain{}))
	require.NoError(t, err)
	require.NoError(t, base.Register(reflect.TypeOf(safeUnregisteredPlain{}), 42, serializer))

	safe := NewSafeConfigContext(base)
	id, err := safe.GetUserTypeId(reflect.TypeOf(safeUnregisteredPlain{}))
	require.NoError(t, err)
	require.EqualValues(t, 42, id)
}

func TestSafeConfigContextRoundTripsSynthesizedSerializer(t *testing.T) {
	safe := NewSafeConfigContext(NewSimplePofContext())

	buf := NewByteBuffer(nil)
	w := NewPofWriter(buf, safe, 999)
	require.NoError(t, w.WriteObject(0, &safeUnregisteredWidget{Label: "gizmo"}))
	require.NoError(t, w.WriteRemainder(nil))

	r, err := NewPofReader(NewByteBuffer(buf.Bytes()), safe)
	require.NoError(t, err)
	decoded, err := r.ReadObject(0)
	require.NoError(t, err)
	require.Equal(t, &safeUnregisteredWidget{Label: "gizmo"}, decoded)
}

// TestSafeConfigContextDecodesAcrossIndependentInstances proves the
// TypePortable fallback is decodable by a SafeConfigContext that never
// itself synthesized a registration for the concrete type: only the
// process-wide name registry populated by the writer's context needs to
// know about it, exactly as a second peer in the same process would see it.
func TestSafeConfigContextDecodesAcrossIndependentInstances(t *testing.T) {
	writerCtx := NewSafeConfigContext(NewSimplePofContext())
	buf := NewByteBuffer(nil)
	w := NewPofWriter(buf, writerCtx, 999)
	require.NoError(t, w.WriteObject(0, &safeUnregisteredWidget{Label: "gizmo"}))
	require.NoError(t, w.WriteRemainder(nil))

	readerCtx := NewSafeConfigContext(NewSimplePofContext())
	r, err := NewPofReader(NewByteBuffer(buf.Bytes()), readerCtx)
	require.NoError(t, err)
	decoded, err := r.ReadObject(0)
	require.NoError(t, err)
	require.Equal(t, &safeUnregisteredWidget{Label: "gizmo"}, decoded)
}

// TestSafeConfigContextDecodesNativeSerializableAcrossIndependentInstances
// is the TypeSerializable analogue of the above: a reader that never
// synthesized a registration for safeMarshaledGadget still decodes it,
// through MarshalBinary/UnmarshalBinary rather than WriteExternal/ReadExternal.
func TestSafeConfigContextDecodesNativeSerializableAcrossIndependentInstances(t *testing.T) {
	writerCtx := NewSafeConfigContext(NewSimplePofContext())
	buf := NewByteBuffer(nil)
	w := NewPofWriter(buf, writerCtx, 999)
	require.NoError(t, w.WriteObject(0, &safeMarshaledGadget{Count: 7}))
	require.NoError(t, w.WriteRemainder(nil))

	readerCtx := NewSafeConfigContext(NewSimplePofContext())
	r, err := NewPofReader(NewByteBuffer(buf.Bytes()), readerCtx)
	require.NoError(t, err)
	decoded, err := r.ReadObject(0)
	require.NoError(t, err)
	require.Equal(t, &safeMarshaledGadget{Count: 7}, decoded)
}

// TestSafeConfigContextRejectsUnregisteredNameOnDecode proves the honest
// edge of the process-scoped bound: a type name nothing in this process
// ever registered cannot be resolved, even though the wire format is
// otherwise well formed.
func TestSafeConfigContextRejectsUnregisteredNameOnDecode(t *testing.T) {
	safe := NewSafeConfigContext(NewSimplePofContext())
	serializer, err := safe.GetSerializer(TypePortable)
	require.NoError(t, err)

	buf := NewByteBuffer(nil)
	writer := NewPofWriter(buf, safe, TypePortable)
	unknownName := "pof_test.neverRegisteredAnywhere"
	require.NoError(t, writer.WriteString(0, &unknownName))
	nested, err := writer.CreateNestedWriter(1, TypePortable)
	require.NoError(t, err)
	require.NoError(t, nested.WriteRemainder(nil))
	require.NoError(t, writer.WriteRemainder(nil))

	reader, err := NewPofReader(NewByteBuffer(buf.Bytes()), safe)
	require.NoError(t, err)
	_, err = serializer.Deserialize(reader)
	require.Error(t, err)
	require.IsType(t, &ConfigurationError{}, err)
}
