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

// UserTypeDescriptor is the immutable record a PofContext hands back for a
// registered user type: its stable type id, its Go type, and the
// serializer that drives it.
type UserTypeDescriptor struct {
	TypeId     TypeId
	Type       reflect.Type
	Serializer Serializer
}

// Serializer is the contract every user-type serializer must obey. A call
// to Serialize must, in order: optionally set the frame's version id, write
// properties in strictly ascending index order, and terminate the frame
// with writer.WriteRemainder. Deserialize must construct a fresh value,
// read properties in the order they appear, and return the value.
type Serializer interface {
	// TypeId returns the stable type id this serializer is bound to.
	TypeId() TypeId
	Serialize(writer *PofWriter, value interface{}) error
	Deserialize(reader *PofReader) (interface{}, error)
}

// PortableObject is implemented by types that serialize themselves: the
// explicit serializer strategy simply dispatches to these two methods.
type PortableObject interface {
	WriteExternal(writer *PofWriter) error
	ReadExternal(reader *PofReader) error
}
