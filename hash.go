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
	"strings"

	"github.com/spaolacci/murmur3"
)

// StructHash fingerprints a struct type's wire-relevant shape: its
// registered property indices paired with each field's Go kind, in index
// order. Two versions of a struct that only reorder unrelated methods or
// rename unexported internals hash the same; a version that adds, removes,
// or retypes a property does not. A client and server pairing their
// AnnotationSerializer field tables can compare this value before trusting
// that they agree on wire layout, without shipping the whole schema.
func StructHash(type_ reflect.Type) (uint32, error) {
	if type_.Kind() == reflect.Ptr {
		type_ = type_.Elem()
	}
	fields, err := buildFieldTable(type_, false)
	if err != nil {
		return 0, err
	}
	var sb strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&sb, "%d:%s;", f.index, f.field.Type.Kind())
	}
	return murmur3.Sum32([]byte(sb.String())), nil
}
