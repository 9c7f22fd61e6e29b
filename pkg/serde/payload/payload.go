package payload

// Codec 抽象了“文档树 <-> 字节流”的编解码能力。
//
// 设计目标：
//   - 面向信封元数据段编码，既支持 gob，也支持 JSON 等互操作格式；
//   - 信封头部记录编码器 ID，反序列化端据此选择实现，
//     与反序列化上下文使用哪个 Codec 无关。
type Codec interface {
	// ID 返回写入信封头部的编码器标识。
	ID() byte

	// Name 返回人类可读的编码器名称。
	Name() string

	// Marshal 将任意对象编码为字节序列。
	Marshal(v any) ([]byte, error)

	// Unmarshal 将字节序列解码到目标对象。
	//
	// v 通常为指针类型，用于接收解码结果。
	Unmarshal(data []byte, v any) error
}

// 已知编码器 ID。
const (
	IDGob  byte = 1
	IDJSON byte = 2
)

// ByID 根据信封头部记录的 ID 返回对应的 Codec。
func ByID(id byte) (Codec, bool) {
	switch id {
	case IDGob:
		return GobCodec{}, true
	case IDJSON:
		return JSONCodec{}, true
	default:
		return nil, false
	}
}
