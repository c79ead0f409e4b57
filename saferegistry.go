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
	"encoding"
	"reflect"
	"sync"
)

var (
	portableObjectType    = reflect.TypeOf((*PortableObject)(nil)).Elem()
	binaryMarshalerType   = reflect.TypeOf((*encoding.BinaryMarshaler)(nil)).Elem()
	binaryUnmarshalerType = reflect.TypeOf((*encoding.BinaryUnmarshaler)(nil)).Elem()
)

// namedTypeRegistry is the process-wide name-to-type table the reserved
// TypePortable/TypeSerializable ids depend on. Go has no runtime class
// loader, so a peer that never explicitly registered a concrete type has no
// way to turn a wire-carried type name back into a reflect.Type unless some
// code in this same process registered it first — the same bound
// encoding/gob.Register accepts for its own dynamic-type fallback. This
// makes the reserved ids resolvable to any SafeConfigContext in the
// process, not only the one that originally synthesized the type, but not
// across a process that never loaded the concrete type at all.
var namedTypeRegistry = struct {
	mu     sync.RWMutex
	byName map[string]reflect.Type
}{byName: make(map[string]reflect.Type)}

// RegisterPortableType makes type_ resolvable by name to every
// SafeConfigContext in this process, even ones that never saw a value of
// this type written. type_ may be a struct or a pointer to one.
func RegisterPortableType(type_ reflect.Type) {
	if type_.Kind() == reflect.Ptr {
		type_ = type_.Elem()
	}
	namedTypeRegistry.mu.Lock()
	namedTypeRegistry.byName[typeName(type_)] = type_
	namedTypeRegistry.mu.Unlock()
}

func lookupNamedType(name string) (reflect.Type, bool) {
	namedTypeRegistry.mu.RLock()
	defer namedTypeRegistry.mu.RUnlock()
	t, ok := namedTypeRegistry.byName[name]
	return t, ok
}

// SafeConfigContext wraps a SimplePofContext and synthesizes a registration
// on the fly, under the reserved ids TypePortable and TypeSerializable, for
// any type that was never explicitly registered but still knows how to
// serialize itself: implementing PortableObject, or both
// encoding.BinaryMarshaler and encoding.BinaryUnmarshaler. Types that
// implement neither remain unknown: this registry is a safety net for the
// common "forgot to register it" case, not a way to serialize arbitrary
// data.
//
// Both reserved ids write the type's assembly-qualified name onto the wire
// ahead of the payload, through the shared namedTypeRegistry, so that any
// SafeConfigContext in the process — not just the one that first saw the
// type — can decode the frame.
type SafeConfigContext struct {
	*SimplePofContext

	mu            sync.Mutex
	dynamicByType map[reflect.Type]TypeId

	portableOnce     sync.Once
	portableSerial   *portableTypeSerializer
	serializableOnce sync.Once
	serializableSer  *nativeSerializableSerializer
}

// NewSafeConfigContext wraps an already-configured context.
func NewSafeConfigContext(base *SimplePofContext) *SafeConfigContext {
	return &SafeConfigContext{
		SimplePofContext: base,
		dynamicByType:    make(map[reflect.Type]TypeId),
	}
}

// GetUserTypeId resolves type_ against the wrapped context first, falling
// back to synthesizing a TypePortable or TypeSerializable registration.
func (c *SafeConfigContext) GetUserTypeId(type_ reflect.Type) (TypeId, error) {
	if id, err := c.SimplePofContext.GetUserTypeId(type_); err == nil {
		return id, nil
	}
	if id, ok := c.synthesize(type_); ok {
		return id, nil
	}
	return 0, newUnknownTypeError(type_)
}

// GetType resolves typeId against the wrapped context. TypePortable and
// TypeSerializable are reserved ids that can correspond to many distinct
// concrete types across a process's lifetime, so there is no single type to
// report for them; callers that need the concrete type read it off the
// wire themselves, as the companion serializers do.
func (c *SafeConfigContext) GetType(typeId TypeId) (reflect.Type, error) {
	if IsReservedTypeId(typeId) {
		return nil, newUnknownTypeError(typeId)
	}
	return c.SimplePofContext.GetType(typeId)
}

// GetSerializer resolves TypePortable/TypeSerializable to the shared
// companion serializer, alongside the wrapped context's own registrations.
// The companion serializer is not tied to any one synthesized type: it
// reads the concrete type's name off the wire and resolves it through the
// process-wide namedTypeRegistry, so it decodes correctly even when this
// particular context never synthesized a registration for that type.
func (c *SafeConfigContext) GetSerializer(typeId TypeId) (Serializer, error) {
	switch typeId {
	case TypePortable:
		c.portableOnce.Do(func() { c.portableSerial = &portableTypeSerializer{} })
		return c.portableSerial, nil
	case TypeSerializable:
		c.serializableOnce.Do(func() { c.serializableSer = &nativeSerializableSerializer{} })
		return c.serializableSer, nil
	}
	return c.SimplePofContext.GetSerializer(typeId)
}

// IsUserType reports whether type_ resolves either through the wrapped
// context or through dynamic synthesis.
func (c *SafeConfigContext) IsUserType(type_ reflect.Type) bool {
	_, err := c.GetUserTypeId(type_)
	return err == nil
}

// synthesize classifies type_ as TypePortable or TypeSerializable, caching
// the classification and registering it by name so any SafeConfigContext in
// the process can later resolve a wire frame for it.
func (c *SafeConfigContext) synthesize(type_ reflect.Type) (TypeId, bool) {
	elem := type_
	if elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.dynamicByType[elem]; ok {
		return id, true
	}

	ptrType := reflect.PtrTo(elem)
	switch {
	case ptrType.Implements(portableObjectType):
		RegisterPortableType(elem)
		c.dynamicByType[elem] = TypePortable
		return TypePortable, true
	case ptrType.Implements(binaryMarshalerType) && ptrType.Implements(binaryUnmarshalerType):
		RegisterPortableType(elem)
		c.dynamicByType[elem] = TypeSerializable
		return TypeSerializable, true
	default:
		return 0, false
	}
}

// portableTypeSerializer is the companion serializer for TypePortable: it
// writes the type's assembly-qualified name at index 0 and the value's own
// WriteExternal payload, as a nested frame, at index 1, per the safe
// fallback registry's wire contract.
type portableTypeSerializer struct{}

func (s *portableTypeSerializer) TypeId() TypeId { return TypePortable }

func (s *portableTypeSerializer) Serialize(writer *PofWriter, value interface{}) error {
	po, ok := value.(PortableObject)
	if !ok {
		return newConfigurationError("value of type %T does not implement PortableObject", value)
	}
	elem := reflect.TypeOf(value)
	if elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}
	name := typeName(elem)
	if err := writer.WriteString(0, &name); err != nil {
		return err
	}
	nested, err := writer.CreateNestedWriter(1, TypePortable)
	if err != nil {
		return err
	}
	if err := po.WriteExternal(nested); err != nil {
		return err
	}
	if err := nested.WriteRemainder(nil); err != nil {
		return err
	}
	var futureData []byte
	if eo, ok := value.(EvolvableObject); ok {
		futureData = eo.EvolvableHolder().Get(TypePortable).FutureData
	}
	return writer.WriteRemainder(futureData)
}

func (s *portableTypeSerializer) Deserialize(reader *PofReader) (interface{}, error) {
	name, err := reader.ReadString(0)
	if err != nil {
		return nil, err
	}
	if name == nil {
		return nil, newMalformedDataError("TypePortable frame is missing its type name")
	}
	type_, ok := lookupNamedType(*name)
	if !ok {
		return nil, newConfigurationError("type %q was never registered with RegisterPortableType in this process", *name)
	}
	if !reflect.PtrTo(type_).Implements(portableObjectType) {
		return nil, newConfigurationError("%s does not implement PortableObject", type_)
	}

	nested, err := reader.CreateNestedReader(1)
	if err != nil {
		return nil, err
	}
	instance := reflect.New(type_).Interface().(PortableObject)
	if err := instance.ReadExternal(nested); err != nil {
		return nil, err
	}
	if _, err := nested.ReadRemainder(); err != nil {
		return nil, err
	}

	remainder, err := reader.ReadRemainder()
	if err != nil {
		return nil, err
	}
	if eo, ok := instance.(EvolvableObject); ok {
		e := eo.EvolvableHolder().Get(TypePortable)
		e.DataVersion = reader.Version()
		e.FutureData = remainder
	}
	return instance, nil
}

// nativeSerializableSerializer is the companion serializer for
// TypeSerializable: the Go analogue of POF's native-platform-serializable
// fallback, built on the standard library's encoding.BinaryMarshaler and
// encoding.BinaryUnmarshaler rather than a PortableObject implementation.
// It writes the type's assembly-qualified name at index 0 and the marshaled
// bytes at index 1.
type nativeSerializableSerializer struct{}

func (s *nativeSerializableSerializer) TypeId() TypeId { return TypeSerializable }

func (s *nativeSerializableSerializer) Serialize(writer *PofWriter, value interface{}) error {
	marshaler, ok := value.(encoding.BinaryMarshaler)
	if !ok {
		return newConfigurationError("value of type %T does not implement encoding.BinaryMarshaler", value)
	}
	elem := reflect.TypeOf(value)
	if elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}
	name := typeName(elem)
	if err := writer.WriteString(0, &name); err != nil {
		return err
	}
	data, err := marshaler.MarshalBinary()
	if err != nil {
		return err
	}
	if err := writer.WriteBinary(1, data); err != nil {
		return err
	}
	var futureData []byte
	if eo, ok := value.(EvolvableObject); ok {
		futureData = eo.EvolvableHolder().Get(TypeSerializable).FutureData
	}
	return writer.WriteRemainder(futureData)
}

func (s *nativeSerializableSerializer) Deserialize(reader *PofReader) (interface{}, error) {
	name, err := reader.ReadString(0)
	if err != nil {
		return nil, err
	}
	if name == nil {
		return nil, newMalformedDataError("TypeSerializable frame is missing its type name")
	}
	type_, ok := lookupNamedType(*name)
	if !ok {
		return nil, newConfigurationError("type %q was never registered with RegisterPortableType in this process", *name)
	}
	ptr := reflect.New(type_)
	unmarshaler, ok := ptr.Interface().(encoding.BinaryUnmarshaler)
	if !ok {
		return nil, newConfigurationError("%s does not implement encoding.BinaryUnmarshaler", type_)
	}
	data, err := reader.ReadBinary(1)
	if err != nil {
		return nil, err
	}
	if err := unmarshaler.UnmarshalBinary(data); err != nil {
		return nil, err
	}

	remainder, err := reader.ReadRemainder()
	if err != nil {
		return nil, err
	}
	instance := ptr.Interface()
	if eo, ok := instance.(EvolvableObject); ok {
		e := eo.EvolvableHolder().Get(TypeSerializable)
		e.DataVersion = reader.Version()
		e.FutureData = remainder
	}
	return instance, nil
}
