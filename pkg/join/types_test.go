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

package join

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/radixjoin/pkg/common/moerr"
)

func TestConfigNormalize(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.Normalize())
	require.Equal(t, 1, cfg.NThreads)
	require.NotNil(t, cfg.Mp)

	cfg = &Config{NThreads: -2}
	err := cfg.Normalize()
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))
}

func TestListSink(t *testing.T) {
	l := &List{}
	l.Emit(1, 2, 3)
	l.Emit(1, 2, 4)
	require.Len(t, l.Tuples, 2)
	require.Equal(t, OutputTuple{Key: 1, PayloadR: 2, PayloadS: 4}, l.Tuples[1])
}
