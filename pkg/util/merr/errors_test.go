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

package merr

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"
)

type ErrSuite struct {
	suite.Suite
}

func (s *ErrSuite) TestCode() {
	err := WrapErrTypeIDUnregistered("point")
	errors.Wrap(err, "failed to deserialize")
	s.ErrorIs(err, ErrTypeIDUnregistered)
	s.Equal(Code(ErrTypeIDUnregistered), Code(err))
	s.Equal(TimeoutCode, Code(context.DeadlineExceeded))
	s.Equal(CanceledCode, Code(context.Canceled))
	s.Equal(errUnexpected.errCode, Code(errUnexpected))

	sameCodeErr := newZeusError("new error", ErrTypeIDUnregistered.errCode, false)
	s.True(sameCodeErr.Is(ErrTypeIDUnregistered))

	// 携带底层原因的包装器也必须把错误码落在 cause 链上。
	s.Equal(Code(ErrSinkWrite), Code(WrapErrSinkWrite(errors.New("pipe closed"), "write header")))
	s.Equal(Code(ErrSourceRead), Code(WrapErrSourceRead(errors.New("short read"), "read meta")))
	s.Equal(Code(ErrBlobCodec), Code(WrapErrBlobCodec(errors.New("gob: eof"))))
	s.Equal(Code(ErrPayloadCodec), Code(WrapErrPayloadCodec(errors.New("bad document"))))
	s.ErrorIs(errors.Wrap(WrapErrSinkWrite(errors.New("pipe closed")), "outer"), ErrSinkWrite)
}

func (s *ErrSuite) TestWrap() {
	// Registry 相关错误。
	s.ErrorIs(WrapErrTypeUnknown(struct{ X int }{1}, "serialize walk"), ErrTypeUnknown)
	s.ErrorIs(WrapErrTypeUnserializable(struct{}{}, "blob", "generic reflection"), ErrTypeUnserializable)
	s.ErrorIs(WrapErrTypeIDUnregistered("ghost", "deserialize walk"), ErrTypeIDUnregistered)
	s.ErrorIs(WrapErrConfiguration("point", "id already bound to another type"), ErrConfiguration)

	// Envelope / components 相关错误。
	s.ErrorIs(WrapErrComponentsInvalid(3, 2, "from components"), ErrComponentsInvalid)
	s.ErrorIs(WrapErrEnvelopeCorrupted("bad magic"), ErrEnvelopeCorrupted)
	s.ErrorIs(WrapErrBufferExhausted(4, 2), ErrBufferExhausted)

	// Codec 相关错误。
	s.ErrorIs(WrapErrBlobCodec(errors.New("gob: unregistered type")), ErrBlobCodec)
	s.ErrorIs(WrapErrPayloadCodec(errors.New("bad document")), ErrPayloadCodec)

	// I/O 相关错误。
	s.ErrorIs(WrapErrSinkWrite(errors.New("pipe closed")), ErrSinkWrite)
	s.ErrorIs(WrapErrSourceRead(errors.New("short read")), ErrSourceRead)
}

func (s *ErrSuite) TestIsInputErr() {
	s.True(IsInputErr(WrapErrTypeUnknown(1)))
	s.True(IsInputErr(WrapErrComponentsInvalid(1, 2)))
	s.False(IsInputErr(WrapErrBufferExhausted(0, 0)))
	s.False(IsInputErr(errors.New("plain")))
}

func (s *ErrSuite) TestCombine() {
	var (
		errFirst  = errors.New("first")
		errSecond = errors.New("second")
		errThird  = errors.New("third")
	)

	err := Combine(errFirst, errSecond)
	s.True(errors.Is(err, errFirst))
	s.True(errors.Is(err, errSecond))
	s.Equal("first: second", err.Error())

	err = Combine(nil, errFirst)
	s.True(errors.Is(err, errFirst))

	err = Combine(errFirst, errSecond, errThird)
	s.True(errors.Is(err, errThird))

	s.NoError(Combine(nil, nil))
}

func (s *ErrSuite) TestRetryable() {
	s.False(IsRetryableErr(ErrTypeUnknown))
	s.True(IsRetryableErr(ErrSinkWrite))
}

func TestErrors(t *testing.T) {
	suite.Run(t, new(ErrSuite))
}
