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
)

// ExplicitSerializer dispatches straight to a type's own WriteExternal and
// ReadExternal methods: the type is its own serializer, the way PortableObject
// is defined to work.
type ExplicitSerializer struct {
	typeId  TypeId
	type_   reflect.Type
	factory func() PortableObject
}

// NewExplicitSerializer binds typeId to type_, a struct type whose pointer
// receiver implements PortableObject. factory constructs a zero value ready
// for ReadExternal to populate; when nil, reflect.New is used instead.
func NewExplicitSerializer(typeId TypeId, type_ reflect.Type, factory func() PortableObject) (*ExplicitSerializer, error) {
	if type_.Kind() == reflect.Ptr {
		type_ = type_.Elem()
	}
	ptrType := reflect.PtrTo(type_)
	if !ptrType.Implements(reflect.TypeOf((*PortableObject)(nil)).Elem()) {
		return nil, newConfigurationError("%s does not implement PortableObject", type_)
	}
	return &ExplicitSerializer{typeId: typeId, type_: type_, factory: factory}, nil
}

func (s *ExplicitSerializer) TypeId() TypeId { return s.typeId }

func (s *ExplicitSerializer) Serialize(writer *PofWriter, value interface{}) error {
	po, ok := value.(PortableObject)
	if !ok {
		return newConfigurationError("value of type %T does not implement PortableObject", value)
	}
	if err := po.WriteExternal(writer); err != nil {
		return err
	}
	var futureData []byte
	if eo, ok := value.(EvolvableObject); ok {
		futureData = eo.EvolvableHolder().Get(s.typeId).FutureData
	}
	return writer.WriteRemainder(futureData)
}

func (s *ExplicitSerializer) Deserialize(reader *PofReader) (interface{}, error) {
	var instance PortableObject
	if s.factory != nil {
		instance = s.factory()
	} else {
		instance = reflect.New(s.type_).Interface().(PortableObject)
	}
	if err := instance.ReadExternal(reader); err != nil {
		return nil, err
	}
	remainder, err := reader.ReadRemainder()
	if err != nil {
		return nil, fmt.Errorf("reading remainder for type %d: %w", s.typeId, err)
	}
	if eo, ok := instance.(EvolvableObject); ok {
		e := eo.EvolvableHolder().Get(s.typeId)
		e.DataVersion = reader.Version()
		e.FutureData = remainder
	}
	return instance, nil
}
