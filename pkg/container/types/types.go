// Copyright 2022 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package types fixes the width of join keys and payloads. The widths are a
// build-time decision; both types must stay trivially copyable.
package types

// Key is the equi-join key. Equality is exact, there is no NULL.
type Key = uint64

// Payload is the fixed-width value carried next to a key.
type Payload = uint64
