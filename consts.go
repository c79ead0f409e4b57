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

// Integer range constants used by the codec and its boundary-case tests.
const (
	MaxUint8  = 1<<8 - 1
	MinInt8   = -1 << 7
	MaxInt8   = 1<<7 - 1
	MinInt16  = -1 << 15
	MaxInt16  = 1<<15 - 1
	MinInt32  = -1 << 31
	MaxInt32  = 1<<31 - 1
	MinInt64  = -1 << 63
	MaxInt64  = 1<<63 - 1
)
