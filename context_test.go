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
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

type ctxBase struct {
	Name string
}

type ctxDerived struct {
	ctxBase
	Age int32
}

type ctxMarker interface {
	Mark()
}

func (ctxBase) Mark() {}

// ctxOtherMarker is a second interface ctxBase satisfies, registered under a
// higher id than ctxMarker so the tie-break has two candidates.
type ctxOtherMarker interface {
	Mark()
}

// ctxStubSerializer is a minimal hand-written Serializer, used where a test
// needs to register a non-struct type (an interface) that
// NewAnnotationSerializer would reject outright.
type ctxStubSerializer struct {
	id TypeId
}

func (s *ctxStubSerializer) TypeId() TypeId { return s.id }

func (s *ctxStubSerializer) Serialize(writer *PofWriter, _ interface{}) error {
	return writer.WriteRemainder(nil)
}

func (s *ctxStubSerializer) Deserialize(reader *PofReader) (interface{}, error) {
	_, err := reader.ReadRemainder()
	return nil, err
}

func TestSimplePofContextExactMatch(t *testing.T) {
	ctx := NewSimplePofContext()
	serializer, err := NewAnnotationSerializer(100, reflect.TypeOf(ctxBase{}))
	require.NoError(t, err)
	require.NoError(t, ctx.Register(reflect.TypeOf(ctxBase{}), 100, serializer))

	id, err := ctx.GetUserTypeId(reflect.TypeOf(ctxBase{}))
	require.NoError(t, err)
	require.EqualValues(t, 100, id)
}

func TestSimplePofContextSubclassFallback(t *testing.T) {
	ctx := NewSimplePofContext()
	ctx.SetAllowSubclasses(true)
	serializer, err := NewAnnotationSerializer(100, reflect.TypeOf(ctxBase{}))
	require.NoError(t, err)
	require.NoError(t, ctx.Register(reflect.TypeOf(ctxBase{}), 100, serializer))

	id, err := ctx.GetUserTypeId(reflect.TypeOf(ctxDerived{}))
	require.NoError(t, err)
	require.EqualValues(t, 100, id)
}

func TestSimplePofContextSubclassFallbackDisabledByDefault(t *testing.T) {
	ctx := NewSimplePofContext()
	serializer, err := NewAnnotationSerializer(100, reflect.TypeOf(ctxBase{}))
	require.NoError(t, err)
	require.NoError(t, ctx.Register(reflect.TypeOf(ctxBase{}), 100, serializer))

	_, err = ctx.GetUserTypeId(reflect.TypeOf(ctxDerived{}))
	require.Error(t, err)
	require.IsType(t, &UnknownTypeError{}, err)
}

func TestSimplePofContextInterfaceFallbackSmallestIdWins(t *testing.T) {
	ctx := NewSimplePofContext()
	ctx.SetAllowInterfaces(true)

	otherType := reflect.TypeOf((*ctxOtherMarker)(nil)).Elem()
	require.NoError(t, ctx.Register(otherType, 9, &ctxStubSerializer{id: 9}))

	markerType := reflect.TypeOf((*ctxMarker)(nil)).Elem()
	lowSerializer := &ctxStubSerializer{id: 5}
	require.NoError(t, ctx.Register(markerType, 5, lowSerializer))

	id, err := ctx.GetUserTypeId(reflect.TypeOf(ctxBase{}))
	require.NoError(t, err)
	require.EqualValues(t, 5, id)
}

func TestSimplePofContextMemoizesUnknownType(t *testing.T) {
	ctx := NewSimplePofContext()
	type neverRegistered struct{}

	_, err := ctx.GetUserTypeId(reflect.TypeOf(neverRegistered{}))
	require.Error(t, err)
	_, err = ctx.GetUserTypeId(reflect.TypeOf(neverRegistered{}))
	require.Error(t, err)
	require.Equal(t, unknownTypeId, ctx.typeIdByType[reflect.TypeOf(neverRegistered{})])
}

func TestSimplePofContextRejectsDuplicateRegistration(t *testing.T) {
	ctx := NewSimplePofContext()
	s1, err := NewAnnotationSerializer(1, reflect.TypeOf(ctxBase{}))
	require.NoError(t, err)
	require.NoError(t, ctx.Register(reflect.TypeOf(ctxBase{}), 1, s1))

	s2, err := NewAnnotationSerializer(2, reflect.TypeOf(ctxBase{}))
	require.NoError(t, err)
	err = ctx.Register(reflect.TypeOf(ctxBase{}), 2, s2)
	require.Error(t, err)
	require.IsType(t, &ConfigurationError{}, err)
}

func TestSimplePofContextRejectsReservedTypeId(t *testing.T) {
	ctx := NewSimplePofContext()
	s, err := NewAnnotationSerializer(TypePortable, reflect.TypeOf(ctxBase{}))
	require.NoError(t, err)
	err = ctx.Register(reflect.TypeOf(ctxBase{}), TypePortable, s)
	require.Error(t, err)
}
