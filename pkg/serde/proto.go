package serde

import (
	"google.golang.org/protobuf/proto"

	"github.com/lk2023060901/objpack-go/pkg/util/merr"
)

// ProtoCodec 为一种 protobuf 消息生成自定义编解码函数对，
// 可直接交给 WithCodec 注册：
//
//	ctx.RegisterType(&pb.Frame{}, "frame", serde.WithCodec(serde.ProtoCodec(&pb.Frame{})))
//
// 解码以 prototype 的描述符为模板构造新消息，还原值与序列化入口同为指针。
func ProtoCodec(prototype proto.Message) (Encoder, Decoder) {
	encode := func(v any) ([]byte, error) {
		msg, ok := v.(proto.Message)
		if !ok {
			return nil, merr.WrapErrTypeUnserializable(v, "", "value is not a proto.Message")
		}
		return proto.Marshal(msg)
	}
	decode := func(data []byte) (any, error) {
		msg := prototype.ProtoReflect().New().Interface()
		if err := proto.Unmarshal(data, msg); err != nil {
			return nil, err
		}
		return msg, nil
	}
	return encode, decode
}
