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

package conc

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"
)

type PoolSuite struct {
	suite.Suite
}

func (s *PoolSuite) TestSubmit() {
	pool := NewPool[int](4)
	defer pool.Release()

	futures := make([]*Future[int], 0, 16)
	for i := 0; i < 16; i++ {
		i := i
		futures = append(futures, pool.Submit(func() (int, error) {
			return i * i, nil
		}))
	}

	for i, future := range futures {
		v, err := future.Await()
		s.NoError(err)
		s.Equal(i*i, v)
		s.True(future.OK())
	}
}

func (s *PoolSuite) TestSubmitError() {
	pool := NewPool[struct{}](1)
	defer pool.Release()

	errBoom := errors.New("boom")
	future := pool.Submit(func() (struct{}, error) {
		return struct{}{}, errBoom
	})
	_, err := future.Await()
	s.ErrorIs(err, errBoom)
	s.False(future.OK())
}

func (s *PoolSuite) TestPanicBecomesError() {
	pool := NewPool[int](1)
	defer pool.Release()

	future := pool.Submit(func() (int, error) {
		panic("task exploded")
	})
	_, err := future.Await()
	s.Error(err)
	s.Contains(err.Error(), "task exploded")
}

func (s *PoolSuite) TestAwaitAll() {
	pool := NewPool[int](2)
	defer pool.Release()

	ok := pool.Submit(func() (int, error) { return 1, nil })
	bad := pool.Submit(func() (int, error) { return 0, errors.New("second failed") })

	err := AwaitAll(ok, bad)
	s.Error(err)
	s.Contains(err.Error(), "second failed")

	s.NoError(AwaitAll(pool.Submit(func() (int, error) { return 2, nil })))
}

func TestPool(t *testing.T) {
	suite.Run(t, new(PoolSuite))
}
