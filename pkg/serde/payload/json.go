package payload

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/lk2023060901/objpack-go/internal/json"
)

// JSONCodec 使用 JSON 编码文档树，面向跨语言互操作场景。
//
// 编码走 internal/json（基于 bytedance/sonic）；
// 解码走 json-iterator 并开启 UseNumber，避免整数被放宽成 float64。
//
// 注意：JSON 无法区分 int8/int32 等具体宽度，透传值会以
// json.Number 的形式还原，逐位往返律只对默认的 GobCodec 成立。
type JSONCodec struct{}

// 编译期断言：确保 JSONCodec 实现了 Codec 接口。
var _ Codec = (*JSONCodec)(nil)

var jsonDecAPI = jsoniter.Config{
	EscapeHTML: true,
	UseNumber:  true,
}.Froze()

func (JSONCodec) ID() byte {
	return IDJSON
}

func (JSONCodec) Name() string {
	return "json"
}

func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	return jsonDecAPI.Unmarshal(data, v)
}
