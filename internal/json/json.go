package json

import (
	"io"

	"github.com/bytedance/sonic"
)

// 统一封装 JSON 编解码入口，底层使用 bytedance/sonic。
//
// 约定：
//   - 项目内部不直接 import encoding/json 或 sonic，统一走本包；
//   - 配置使用 sonic.ConfigStd，保证与标准库行为一致（键排序、转义等）。
var (
	api = sonic.ConfigStd
)

// Marshal 将对象编码为 JSON 字节序列。
func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

// Unmarshal 将 JSON 字节序列解码到目标对象。
func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}

// NewEncoder 创建一个写入 w 的流式编码器。
func NewEncoder(w io.Writer) sonic.Encoder {
	return api.NewEncoder(w)
}

// NewDecoder 创建一个从 r 读取的流式解码器。
func NewDecoder(r io.Reader) sonic.Decoder {
	return api.NewDecoder(r)
}
