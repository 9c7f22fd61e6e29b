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
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Code 返回给定错误对应的错误码。
func Code(err error) int32 {
	if err == nil {
		return 0
	}

	cause := errors.Cause(err)
	switch specificErr := cause.(type) {
	case zeusError:
		return specificErr.code()

	default:
		if errors.Is(specificErr, context.Canceled) {
			return CanceledCode
		} else if errors.Is(specificErr, context.DeadlineExceeded) {
			return TimeoutCode
		} else {
			return errUnexpected.code()
		}
	}
}

func IsRetryableErr(err error) bool {
	if err, ok := err.(zeusError); ok {
		return err.retriable
	}

	return false
}

func IsCanceledOrTimeout(err error) bool {
	return errors.IsAny(err, context.Canceled, context.DeadlineExceeded)
}

// IsInputErr 判断错误是否由调用方输入导致。
func IsInputErr(err error) bool {
	if err, ok := errors.Cause(err).(zeusError); ok {
		return err.errType == InputError
	}
	return false
}

type errorField interface {
	String() string
}

type valueField struct {
	name  string
	value any
}

func value(name string, value any) valueField {
	return valueField{
		name,
		value,
	}
}

func (f valueField) String() string {
	return fmt.Sprintf("%s=%v", f.name, f.value)
}

func wrapFields(err zeusError, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.detail = err.msg
	return err
}

// Registry related error wrappers.

// WrapErrTypeUnknown 在序列化分发找不到任何注册条目时使用。
// 错误信息中携带触发对象的类型与值，便于定位。
func WrapErrTypeUnknown(obj any, msg ...string) error {
	err := wrapFields(ErrTypeUnknown,
		value("type", fmt.Sprintf("%T", obj)),
		value("value", obj),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrTypeUnserializable(obj any, typeID string, msg ...string) error {
	err := wrapFields(ErrTypeUnserializable,
		value("type", fmt.Sprintf("%T", obj)),
		value("typeID", typeID),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrTypeIDUnregistered(typeID string, msg ...string) error {
	err := wrapFields(ErrTypeIDUnregistered, value("typeID", typeID))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrConfiguration(typeID string, reason string, msg ...string) error {
	err := wrapFields(ErrConfiguration,
		value("typeID", typeID),
		value("reason", reason),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// Envelope / components related error wrappers.

func WrapErrComponentsInvalid(expected, actual int, msg ...string) error {
	err := wrapFields(ErrComponentsInvalid,
		value("expected", expected),
		value("actual", actual),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrEnvelopeCorrupted(reason string, msg ...string) error {
	err := wrapFields(ErrEnvelopeCorrupted, value("reason", reason))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrBufferExhausted(index, total int, msg ...string) error {
	err := wrapFields(ErrBufferExhausted,
		value("index", index),
		value("total", total),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// Codec related error wrappers.
// 底层原因作为字段并入叶子错误：zeusError 必须落在 cause 链上，
// 否则 errors.Is 和 Code 都识别不到错误类别。

func WrapErrBlobCodec(cause error, msg ...string) error {
	err := wrapFields(ErrBlobCodec, value("cause", cause))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrPayloadCodec(cause error, msg ...string) error {
	err := wrapFields(ErrPayloadCodec, value("cause", cause))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// I/O related error wrappers.

func WrapErrSinkWrite(cause error, msg ...string) error {
	err := wrapFields(ErrSinkWrite, value("cause", cause))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrSourceRead(cause error, msg ...string) error {
	err := wrapFields(ErrSourceRead, value("cause", cause))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}
