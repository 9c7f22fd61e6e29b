// Package blob 定义 opaque-blob 兜底编解码器的契约与默认实现。
//
// 当某个 type id 以 opaque 策略注册、且没有自定义编解码器时，
// 注册表会用本包的编解码器把整个对象当作一段不透明字节处理。
// 默认实现基于 encoding/gob，即 Go 生态的通用对象编码器。
package blob

import (
	"bytes"
	"encoding/gob"
)

// Encoder 将任意对象编码为字节序列。
type Encoder func(v any) ([]byte, error)

// Decoder 将字节序列还原为对象。
// 还原结果的动态类型由编码时的对象决定，不经过注册表校验。
type Decoder func(data []byte) (any, error)

// NewGobCodec 返回基于 encoding/gob 的默认编解码器对。
//
// 注意：通过接口槽编码的具体类型必须先调用 Register 注册，
// 注册表在以 opaque 策略注册类型时会自动完成这一步。
func NewGobCodec() (Encoder, Decoder) {
	enc := func(v any) ([]byte, error) {
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(&v); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	dec := func(data []byte) (any, error) {
		var v any
		if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
	return enc, dec
}

// Register 将原型对象的具体类型注册到 gob。
// 对同一类型重复调用是幂等的。
func Register(prototype any) {
	gob.Register(prototype)
}
