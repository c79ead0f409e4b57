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
)

// embeddedPath is one struct embedded (directly or transitively) in a
// hierarchical type's chain, together with the reflect.FieldByIndex path
// that reaches it from the leaf value.
type embeddedPath struct {
	Type reflect.Type
	Path []int
}

// collectEmbeddedPaths walks type_'s anonymous fields breadth first,
// recording the index path to reach each one — the Go analogue of walking a
// class's ancestor chain, since embedding is Go's structural stand-in for
// inheritance.
func collectEmbeddedPaths(type_ reflect.Type) []embeddedPath {
	if type_.Kind() == reflect.Ptr {
		type_ = type_.Elem()
	}
	type queued struct {
		t    reflect.Type
		path []int
	}
	var out []embeddedPath
	queue := []queued{{type_, nil}}
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		for i := 0; i < item.t.NumField(); i++ {
			f := item.t.Field(i)
			if !f.Anonymous {
				continue
			}
			ft := f.Type
			if ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			path := make([]int, len(item.path)+1)
			copy(path, item.path)
			path[len(item.path)] = i
			out = append(out, embeddedPath{Type: ft, Path: path})
			if ft.Kind() == reflect.Struct {
				queue = append(queue, queued{ft, path})
			}
		}
	}
	return out
}

// hierarchyLevel is one class's worth of metadata the hierarchical
// serializer has precomputed: where to find it within the leaf value, and
// which of its own fields (excluding further embedded base types) it owns.
type hierarchyLevel struct {
	path   []int
	fields []annotationField
}

// HierarchicalSerializer writes one nested frame per class in an object's
// embedding chain, ordered by ascending type id — the structural analogue
// of walking a class hierarchy from its root superclass down to the most
// derived class. A class frame this code's chain doesn't recognize (because
// the object carries evolvable state for an ancestor a newer or
// cross-language peer added) is preserved and replayed as an opaque blob
// rather than decoded.
type HierarchicalSerializer struct {
	typeId TypeId
	type_  reflect.Type
	ctx    PofContext

	levels map[TypeId]hierarchyLevel
}

// NewHierarchicalSerializer binds typeId to type_ and precomputes the
// per-class field tables for type_'s own declared fields (keyed by typeId)
// plus every embedded type whose class id ctx resolves; an embedded type ctx
// does not resolve gets no level.
func NewHierarchicalSerializer(typeId TypeId, type_ reflect.Type, ctx PofContext) (*HierarchicalSerializer, error) {
	if type_.Kind() == reflect.Ptr {
		type_ = type_.Elem()
	}
	if type_.Kind() != reflect.Struct {
		return nil, newConfigurationError("%s is not a struct", type_)
	}

	levels := make(map[TypeId]hierarchyLevel)

	// type_'s own level is keyed by the typeId this very registration is
	// for, not by a context lookup: at construction time type_ has not been
	// registered yet (Register needs this serializer to exist first), so
	// ctx has nothing to resolve it to.
	ownFields, err := buildFieldTable(type_, true)
	if err != nil {
		return nil, err
	}
	levels[typeId] = hierarchyLevel{path: nil, fields: ownFields}

	// Embedded ancestor types are a different matter: Configuration.UserTypes
	// must list a hierarchy's base classes before its subclasses, so by the
	// time a subclass's serializer is built, each embedded type's own class
	// id is already registered and resolvable through ctx.
	for _, ep := range collectEmbeddedPaths(type_) {
		id, err := ctx.GetUserTypeId(ep.Type)
		if err != nil {
			continue // an embedded type with no class id of its own is plain code reuse, not a hierarchy level
		}
		fields, err := buildFieldTable(ep.Type, true)
		if err != nil {
			return nil, err
		}
		levels[id] = hierarchyLevel{path: ep.Path, fields: fields}
	}

	return &HierarchicalSerializer{typeId: typeId, type_: type_, ctx: ctx, levels: levels}, nil
}

func (s *HierarchicalSerializer) TypeId() TypeId { return s.typeId }

func (s *HierarchicalSerializer) Serialize(writer *PofWriter, value interface{}) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}

	var holder *EvolvableHolder
	if eo, ok := value.(EvolvableObject); ok {
		holder = eo.EvolvableHolder()
	}

	ids := make(map[TypeId]bool, len(s.levels))
	for id := range s.levels {
		ids[id] = true
	}
	if holder != nil {
		for _, id := range holder.TypeIds() {
			ids[id] = true
		}
	}
	sortedIds := make([]TypeId, 0, len(ids))
	for id := range ids {
		sortedIds = append(sortedIds, id)
	}
	sort.Slice(sortedIds, func(i, j int) bool { return sortedIds[i] < sortedIds[j] })

	for _, classId := range sortedIds {
		level, known := s.levels[classId]
		if !known {
			// A class id recorded only in evolvable state: this code has no
			// field table for it, so the only sound thing to do is replay
			// the exact bytes it arrived with.
			if holder == nil {
				continue
			}
			if err := writer.WriteRawFrame(classId, holder.Get(classId).FutureData); err != nil {
				return err
			}
			continue
		}

		classValue := rv
		if len(level.path) > 0 {
			classValue = rv.FieldByIndex(level.path)
		}

		nested, err := writer.CreateNestedWriter(classId, classId)
		if err != nil {
			return err
		}
		if holder != nil {
			nested.SetVersion(holder.Get(classId).EffectiveVersion())
		}
		for _, af := range level.fields {
			if err := writeReflected(nested, af.index, classValue.FieldByIndex(af.field.Index)); err != nil {
				return err
			}
		}
		var futureData []byte
		if holder != nil {
			futureData = holder.Get(classId).FutureData
		}
		if err := nested.WriteRemainder(futureData); err != nil {
			return err
		}
	}

	return writer.WriteRemainder(nil)
}

func (s *HierarchicalSerializer) Deserialize(reader *PofReader) (interface{}, error) {
	ptr := reflect.New(s.type_)
	rv := ptr.Elem()
	instance := ptr.Interface()

	var holder *EvolvableHolder
	if eo, ok := instance.(EvolvableObject); ok {
		holder = eo.EvolvableHolder()
	}

	for {
		classId, err := reader.NextPropertyIndex()
		if err != nil {
			return nil, err
		}
		if classId == terminatorIndex {
			break
		}

		level, known := s.levels[classId]
		if !known {
			raw, err := reader.ReadRawFrame(classId)
			if err != nil {
				return nil, err
			}
			if holder != nil {
				holder.Get(classId).FutureData = raw
			}
			continue
		}

		nested, err := reader.CreateNestedReader(classId)
		if err != nil {
			return nil, err
		}
		classValue := rv
		if len(level.path) > 0 {
			classValue = rv.FieldByIndex(level.path)
		}
		for _, af := range level.fields {
			if err := readReflected(nested, af.index, classValue.FieldByIndex(af.field.Index)); err != nil {
				return nil, err
			}
		}
		remainder, err := nested.ReadRemainder()
		if err != nil {
			return nil, err
		}
		if holder != nil {
			e := holder.Get(classId)
			e.DataVersion = nested.Version()
			e.FutureData = remainder
		}
	}

	if _, err := reader.ReadRemainder(); err != nil {
		return nil, err
	}
	return instance, nil
}
