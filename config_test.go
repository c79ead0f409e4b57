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

type cfgWidget struct {
	Label string `pof:"0"`
}

const cfgWidgetTypeId TypeId = 20

func TestConfigurationBuildRegistersUserTypes(t *testing.T) {
	cfg := &Configuration{
		UserTypes: []UserTypeConfig{
			{TypeId: cfgWidgetTypeId, Type: reflect.TypeOf(cfgWidget{}), Serializer: AnnotationSerializerConfig()},
		},
	}
	ctx, err := cfg.Build()
	require.NoError(t, err)

	id, err := ctx.GetUserTypeId(reflect.TypeOf(cfgWidget{}))
	require.NoError(t, err)
	require.Equal(t, cfgWidgetTypeId, id)
}

func TestConfigurationBuildUsesDefaultSerializerWhenUnset(t *testing.T) {
	cfg := &Configuration{
		DefaultSerializer: AnnotationSerializerConfig(),
		UserTypes: []UserTypeConfig{
			{TypeId: cfgWidgetTypeId, Type: reflect.TypeOf(cfgWidget{})},
		},
	}
	ctx, err := cfg.Build()
	require.NoError(t, err)

	serializer, err := ctx.GetSerializer(cfgWidgetTypeId)
	require.NoError(t, err)
	require.IsType(t, &AnnotationSerializer{}, serializer)
}

func TestConfigurationBuildErrorsWithoutSerializer(t *testing.T) {
	cfg := &Configuration{
		UserTypes: []UserTypeConfig{
			{TypeId: cfgWidgetTypeId, Type: reflect.TypeOf(cfgWidget{})},
		},
	}
	_, err := cfg.Build()
	require.Error(t, err)
}

func TestConfigurationBuildOrsFlagsAcrossIncludes(t *testing.T) {
	included := &Configuration{AllowSubclasses: true}
	cfg := &Configuration{
		AllowInterfaces: true,
		Includes:        []*Configuration{included},
	}
	ctx, err := cfg.Build()
	require.NoError(t, err)
	require.True(t, ctx.AllowInterfaces())
	require.True(t, ctx.AllowSubclasses())
}

func TestConfigurationBuildBreaksIncludeCycles(t *testing.T) {
	a := &Configuration{}
	b := &Configuration{Includes: []*Configuration{a}}
	a.Includes = []*Configuration{b}

	_, err := a.Build()
	require.NoError(t, err)
}

func TestConfigurationBuildValidatesExplicitSerializerClassNameInitParam(t *testing.T) {
	sc := ExplicitSerializerConfig()
	sc.InitParams = []string{"{class-name}"}
	cfg := &Configuration{
		UserTypes: []UserTypeConfig{
			{TypeId: 30, Type: reflect.TypeOf(safeUnregisteredWidget{}), Serializer: sc},
		},
	}
	_, err := cfg.Build()
	require.NoError(t, err)
}

func TestConfigurationBuildRejectsMismatchedClassNameInitParam(t *testing.T) {
	sc := ExplicitSerializerConfig()
	sc.InitParams = []string{"com.example.SomeOtherType"}
	cfg := &Configuration{
		UserTypes: []UserTypeConfig{
			{TypeId: 30, Type: reflect.TypeOf(safeUnregisteredWidget{}), Serializer: sc},
		},
	}
	_, err := cfg.Build()
	require.Error(t, err)
	require.IsType(t, &ConfigurationError{}, err)
}

func TestConfigurationBuildHierarchyOrdersBaseBeforeSubclass(t *testing.T) {
	cfg := &Configuration{
		UserTypes: []UserTypeConfig{
			{TypeId: hierAnimalTypeId, Type: reflect.TypeOf(hierAnimal{}), Serializer: HierarchicalSerializerConfig()},
			{TypeId: hierDogTypeId, Type: reflect.TypeOf(hierDog{}), Serializer: HierarchicalSerializerConfig()},
		},
	}
	ctx, err := cfg.Build()
	require.NoError(t, err)

	buf := NewByteBuffer(nil)
	w := NewPofWriter(buf, ctx, hierDogTypeId)
	require.NoError(t, w.WriteObject(0, &hierDog{hierAnimal: hierAnimal{Name: "Milo"}, Breed: "Beagle"}))
	require.NoError(t, w.WriteRemainder(nil))

	r, err := NewPofReader(NewByteBuffer(buf.Bytes()), ctx)
	require.NoError(t, err)
	decoded, err := r.ReadObject(0)
	require.NoError(t, err)
	require.Equal(t, &hierDog{hierAnimal: hierAnimal{Name: "Milo"}, Breed: "Beagle"}, decoded)
}
