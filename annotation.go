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
	"sort"
	"strconv"
)

// pofTag is the struct tag key AnnotationSerializer reads an explicit
// property index from: `pof:"3"`. Fields without the tag are assigned an
// index automatically.
const pofTag = "pof"

// annotationField is one exported field bound to a property index.
type annotationField struct {
	index int32
	field reflect.StructField
}

// AnnotationSerializer builds its field table once, at registration time, by
// reflecting over a struct type: fields tagged `pof:"N"` keep their explicit
// index, and every other exported field is assigned the lowest index not
// already claimed, in ascending name order. This mirrors the way the
// teacher's own type resolver builds its once-per-type metadata rather than
// re-deriving it on every encode.
type AnnotationSerializer struct {
	typeId TypeId
	type_  reflect.Type
	fields []annotationField
}

// NewAnnotationSerializer builds the field table for type_ (a struct type,
// or pointer to one) and binds it to typeId.
func NewAnnotationSerializer(typeId TypeId, type_ reflect.Type) (*AnnotationSerializer, error) {
	if type_.Kind() == reflect.Ptr {
		type_ = type_.Elem()
	}
	if type_.Kind() != reflect.Struct {
		return nil, newConfigurationError("%s is not a struct", type_)
	}
	fields, err := buildFieldTable(type_, false)
	if err != nil {
		return nil, err
	}
	return &AnnotationSerializer{typeId: typeId, type_: type_, fields: fields}, nil
}

// buildFieldTable scans type_'s directly declared fields into index order,
// the way NewAnnotationSerializer does. When skipAnonymous is set, embedded
// (anonymous) fields are omitted — the hierarchical serializer uses this to
// collect a class's own fields without also sweeping in its base classes,
// which it walks separately as their own nested frames.
func buildFieldTable(type_ reflect.Type, skipAnonymous bool) ([]annotationField, error) {
	var explicit []annotationField
	var unindexed []reflect.StructField
	claimed := make(map[int32]bool)

	for i := 0; i < type_.NumField(); i++ {
		f := type_.Field(i)
		if f.PkgPath != "" {
			continue // unexported
		}
		if skipAnonymous && f.Anonymous {
			continue
		}
		tag, ok := f.Tag.Lookup(pofTag)
		if ok && tag != "-" {
			idx, err := strconv.Atoi(tag)
			if err != nil {
				return nil, newConfigurationError("field %s has invalid pof tag %q", f.Name, tag)
			}
			explicit = append(explicit, annotationField{index: int32(idx), field: f})
			claimed[int32(idx)] = true
			continue
		}
		if ok && tag == "-" {
			continue // explicitly excluded
		}
		unindexed = append(unindexed, f)
	}

	sort.Slice(unindexed, func(i, j int) bool { return unindexed[i].Name < unindexed[j].Name })

	var next int32
	for _, f := range unindexed {
		for claimed[next] {
			next++
		}
		explicit = append(explicit, annotationField{index: next, field: f})
		claimed[next] = true
		next++
	}

	sort.Slice(explicit, func(i, j int) bool { return explicit[i].index < explicit[j].index })
	return explicit, nil
}

func (s *AnnotationSerializer) TypeId() TypeId { return s.typeId }

func (s *AnnotationSerializer) Serialize(writer *PofWriter, value interface{}) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	for _, af := range s.fields {
		if err := writeReflected(writer, af.index, rv.FieldByIndex(af.field.Index)); err != nil {
			return err
		}
	}
	var futureData []byte
	if eo, ok := value.(EvolvableObject); ok {
		futureData = eo.EvolvableHolder().Get(s.typeId).FutureData
	}
	return writer.WriteRemainder(futureData)
}

func (s *AnnotationSerializer) Deserialize(reader *PofReader) (interface{}, error) {
	ptr := reflect.New(s.type_)
	rv := ptr.Elem()
	for _, af := range s.fields {
		if err := readReflected(reader, af.index, rv.FieldByIndex(af.field.Index)); err != nil {
			return nil, err
		}
	}
	remainder, err := reader.ReadRemainder()
	if err != nil {
		return nil, err
	}
	instance := ptr.Interface()
	if eo, ok := instance.(EvolvableObject); ok {
		e := eo.EvolvableHolder().Get(s.typeId)
		e.DataVersion = reader.Version()
		e.FutureData = remainder
	}
	return instance, nil
}

// writeReflected writes field's current value to writer at index, dispatching
// on its Go kind.
func writeReflected(writer *PofWriter, index int32, field reflect.Value) error {
	switch field.Kind() {
	case reflect.Bool:
		return writer.WriteBool(index, field.Bool())
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int:
		return writer.WriteInt32(index, int32(field.Int()))
	case reflect.Int64:
		return writer.WriteInt64(index, field.Int())
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return writer.WriteInt32(index, int32(field.Uint()))
	case reflect.Uint64, reflect.Uint:
		return writer.WriteInt64(index, int64(field.Uint()))
	case reflect.Float32:
		return writer.WriteFloat32(index, float32(field.Float()))
	case reflect.Float64:
		return writer.WriteFloat64(index, field.Float())
	case reflect.String:
		s := field.String()
		return writer.WriteString(index, &s)
	case reflect.Ptr:
		if field.Type().Elem().Kind() == reflect.String {
			if field.IsNil() {
				return writer.WriteString(index, nil)
			}
			s := field.Elem().String()
			return writer.WriteString(index, &s)
		}
		if field.IsNil() {
			return writer.WriteObject(index, nil)
		}
		return writer.WriteObject(index, field.Interface())
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.Uint8 {
			return writer.WriteBinary(index, field.Bytes())
		}
		return writer.WriteObject(index, field.Interface())
	case reflect.Struct, reflect.Interface, reflect.Map:
		return writer.WriteObject(index, field.Interface())
	default:
		return newConfigurationError("unsupported field kind %s at index %d", field.Kind(), index)
	}
}

// readReflected reads the value at index from reader into field, dispatching
// on field's declared Go kind. An absent property leaves field at its zero
// value, since ReadX already returns the zero value for an absent index.
func readReflected(reader *PofReader, index int32, field reflect.Value) error {
	switch field.Kind() {
	case reflect.Bool:
		v, err := reader.ReadBool(index)
		if err != nil {
			return err
		}
		field.SetBool(v)
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int:
		v, err := reader.ReadInt32(index)
		if err != nil {
			return err
		}
		field.SetInt(int64(v))
	case reflect.Int64:
		v, err := reader.ReadInt64(index)
		if err != nil {
			return err
		}
		field.SetInt(v)
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		v, err := reader.ReadInt32(index)
		if err != nil {
			return err
		}
		field.SetUint(uint64(v))
	case reflect.Uint64, reflect.Uint:
		v, err := reader.ReadInt64(index)
		if err != nil {
			return err
		}
		field.SetUint(uint64(v))
	case reflect.Float32:
		v, err := reader.ReadFloat32(index)
		if err != nil {
			return err
		}
		field.SetFloat(float64(v))
	case reflect.Float64:
		v, err := reader.ReadFloat64(index)
		if err != nil {
			return err
		}
		field.SetFloat(v)
	case reflect.String:
		v, err := reader.ReadString(index)
		if err != nil {
			return err
		}
		if v != nil {
			field.SetString(*v)
		}
	case reflect.Ptr:
		if field.Type().Elem().Kind() == reflect.String {
			v, err := reader.ReadString(index)
			if err != nil {
				return err
			}
			field.Set(reflect.ValueOf(v))
			return nil
		}
		v, err := reader.ReadObject(index)
		if err != nil {
			return err
		}
		if v != nil {
			field.Set(reflect.ValueOf(v))
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.Uint8 {
			v, err := reader.ReadBinary(index)
			if err != nil {
				return err
			}
			field.SetBytes(v)
			return nil
		}
		v, err := reader.ReadObject(index)
		if err != nil {
			return err
		}
		if v != nil {
			field.Set(reflect.ValueOf(v))
		}
	case reflect.Struct, reflect.Interface, reflect.Map:
		v, err := reader.ReadObject(index)
		if err != nil {
			return err
		}
		if v != nil {
			field.Set(reflect.ValueOf(v))
		}
	default:
		return newConfigurationError("unsupported field kind %s at index %d", field.Kind(), index)
	}
	return nil
}
