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
	"strconv"
	"strings"
)

// SerializerFactory builds the Serializer for one user type registration.
// typeId and type_ are always the values the registration was declared
// with; ctx is the context the serializer will ultimately live in, which a
// factory needing to resolve other types (HierarchicalSerializer) can
// capture; params are the registration's InitParams with every "{...}"
// substitution token already resolved.
type SerializerFactory func(typeId TypeId, type_ reflect.Type, ctx PofContext, params []string) (Serializer, error)

// SerializerConfig names a serializer strategy and the parameters its
// factory is built from. InitParams mirrors the init-param substitution
// tokens a descriptor-driven config would carry: "{type-id}" and
// "{class-name}" are replaced with the registration's own typeId and
// type name before the factory runs.
type SerializerConfig struct {
	Factory    SerializerFactory
	InitParams []string
}

// resolveInitParams substitutes the well-known tokens into cfg's raw
// parameter strings for one specific registration.
func resolveInitParams(params []string, typeId TypeId, type_ reflect.Type) []string {
	if len(params) == 0 {
		return nil
	}
	out := make([]string, len(params))
	id := strconv.Itoa(int(typeId))
	name := typeName(type_)
	for i, p := range params {
		p = strings.ReplaceAll(p, "{type-id}", id)
		p = strings.ReplaceAll(p, "{class-name}", name)
		p = strings.ReplaceAll(p, "{class}", type_.Name())
		out[i] = p
	}
	return out
}

// ExplicitSerializerConfig returns a SerializerConfig that builds an
// ExplicitSerializer — the strategy for types implementing PortableObject.
//
// If InitParams is set, its first resolved value is checked against type_'s
// own assembly-qualified name: this is the Go analogue of a descriptor's
// "{class-name}" init-param, letting a misconfigured registration (the
// wrong Go type bound to a UserTypeConfig entry) fail at Build time instead
// of silently serializing the wrong type.
func ExplicitSerializerConfig() SerializerConfig {
	return SerializerConfig{
		Factory: func(typeId TypeId, type_ reflect.Type, _ PofContext, params []string) (Serializer, error) {
			if len(params) > 0 && params[0] != typeName(type_) {
				return nil, newConfigurationError("init-param class name %q does not match registered type %s", params[0], typeName(type_))
			}
			return NewExplicitSerializer(typeId, type_, nil)
		},
	}
}

// AnnotationSerializerConfig returns a SerializerConfig that builds an
// AnnotationSerializer — the reflective, struct-tag-driven strategy.
func AnnotationSerializerConfig() SerializerConfig {
	return SerializerConfig{
		Factory: func(typeId TypeId, type_ reflect.Type, _ PofContext, _ []string) (Serializer, error) {
			return NewAnnotationSerializer(typeId, type_)
		},
	}
}

// HierarchicalSerializerConfig returns a SerializerConfig that builds a
// HierarchicalSerializer — the per-class-frame strategy for embedding-based
// type hierarchies.
func HierarchicalSerializerConfig() SerializerConfig {
	return SerializerConfig{
		Factory: func(typeId TypeId, type_ reflect.Type, ctx PofContext, _ []string) (Serializer, error) {
			return NewHierarchicalSerializer(typeId, type_, ctx)
		},
	}
}

// UserTypeConfig is one <user-type> entry: a stable type id bound to a Go
// type and the serializer strategy it is registered with.
type UserTypeConfig struct {
	TypeId     TypeId
	Type       reflect.Type
	Serializer SerializerConfig
}

// Configuration.UserTypes must list a hierarchy's base classes before the
// types that embed them: HierarchicalSerializerConfig resolves each embedded
// base class's id against the context being built, so a base class registered
// later would still read as unknown when its subclass's serializer is
// constructed.

// Configuration is a PofContext descriptor: a flat list of user type
// registrations plus zero or more included configurations, resolved
// together into one SimplePofContext. It is the Go-native analogue of a
// POF configuration descriptor tree, without an XML file format to parse —
// a Configuration value is built directly in code, or assembled
// programmatically from whatever external source an application chooses.
type Configuration struct {
	AllowInterfaces   bool
	AllowSubclasses   bool
	ReferencesEnabled bool

	DefaultSerializer SerializerConfig
	UserTypes         []UserTypeConfig
	Includes          []*Configuration
}

// Build merges cfg with every configuration it (transitively) includes and
// produces a ready-to-use context. Flags OR together across the whole
// include graph; a configuration reachable through more than one include
// path contributes its registrations only once, breaking cycles by
// identity.
func (cfg *Configuration) Build() (*SimplePofContext, error) {
	ctx := NewSimplePofContext()
	seen := make(map[*Configuration]bool)
	var flagsAllowInterfaces, flagsAllowSubclasses, flagsReferences bool

	var visit func(c *Configuration) error
	visit = func(c *Configuration) error {
		if seen[c] {
			return nil
		}
		seen[c] = true

		flagsAllowInterfaces = flagsAllowInterfaces || c.AllowInterfaces
		flagsAllowSubclasses = flagsAllowSubclasses || c.AllowSubclasses
		flagsReferences = flagsReferences || c.ReferencesEnabled

		for _, inc := range c.Includes {
			if err := visit(inc); err != nil {
				return err
			}
		}
		for _, ut := range c.UserTypes {
			sc := ut.Serializer
			if sc.Factory == nil {
				sc = c.DefaultSerializer
			}
			if sc.Factory == nil {
				return newConfigurationError("user type %d has no serializer and no default-serializer applies", ut.TypeId)
			}
			params := resolveInitParams(sc.InitParams, ut.TypeId, ut.Type)
			serializer, err := sc.Factory(ut.TypeId, ut.Type, ctx, params)
			if err != nil {
				return err
			}
			if err := ctx.Register(ut.Type, ut.TypeId, serializer); err != nil {
				return err
			}
		}
		return nil
	}

	if err := visit(cfg); err != nil {
		return nil, err
	}

	ctx.SetAllowInterfaces(flagsAllowInterfaces)
	ctx.SetAllowSubclasses(flagsAllowSubclasses)
	ctx.SetReferencesEnabled(flagsReferences)
	return ctx, nil
}
