package payload

import (
	"bytes"
	"encoding/gob"
)

// GobCodec 使用 encoding/gob 编码文档树，是默认实现。
//
// gob 会在接口槽中保留具体的 Go 类型（含 int 宽度），
// 因此原样透传的值可以逐位还原，满足逐值相等的往返律。
type GobCodec struct{}

// 编译期断言：确保 GobCodec 实现了 Codec 接口。
var _ Codec = (*GobCodec)(nil)

func (GobCodec) ID() byte {
	return IDGob
}

func (GobCodec) Name() string {
	return "gob"
}

func (GobCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (GobCodec) Unmarshal(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
