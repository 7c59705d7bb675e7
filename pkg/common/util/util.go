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

package util

import "golang.org/x/exp/constraints"

// NextPowerOfTwo returns the smallest power of two >= v. Zero stays zero.
func NextPowerOfTwo[T constraints.Unsigned](v T) T {
	if v == 0 {
		return 0
	}
	v--
	for shift := 1; shift < 64; shift <<= 1 {
		v |= v >> shift
	}
	return v + 1
}
