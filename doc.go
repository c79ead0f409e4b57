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

// Package pof implements the core of a Portable Object Format codec: a
// binary, schema-registered, self-describing encoding used to exchange
// user-defined types between heterogeneous clients of a distributed data
// grid.
//
// The package is layered bottom up: a packed-integer byte codec, a
// property-indexed stream reader/writer over that codec, a type registry
// mapping stable integer type ids to Go types and their serializers, three
// serializer strategies (explicit, reflective, hierarchical), and an
// evolvable-state store for forward-compatible schema evolution.
package pof
