// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package typeutil

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	set := NewTypeIDSet("point", "matrix")
	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Contain("point"))
	assert.False(t, set.Contain("ghost"))

	set.Insert("frame")
	assert.True(t, set.Contain("point", "frame"))

	set.Remove("point")
	assert.False(t, set.Contain("point"))

	ids := set.Collect()
	sort.Strings(ids)
	assert.Equal(t, []string{"frame", "matrix"}, ids)
}

func TestSetClone(t *testing.T) {
	set := NewTypeIDSet("a")
	clone := set.Clone()
	clone.Insert("b")

	assert.True(t, clone.Contain("a", "b"))
	assert.False(t, set.Contain("b"))
	assert.Equal(t, 1, set.Len())
}
