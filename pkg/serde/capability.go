package serde

// 通用反射策略不做隐式的字段扫描，
// 而是要求参与类型显式实现下面两个能力接口之一。
// 两个接口对应两种重建方式：构造参数式与字段包式。
//
// 重建都是两阶段的：先分配一个未初始化的实例（不会执行任何构造逻辑），
// 再调用 UnmarshalRecord / UnmarshalFields 填充，
// 因此两个接口的 Unmarshal 方法都应该使用指针接收者。

// RecordCodec 由“固定字段记录”类型实现。
// MarshalRecord 返回的参数列表与 UnmarshalRecord 接收的参数列表一一对应，
// 顺序即为记录的字段顺序。
type RecordCodec interface {
	MarshalRecord() ([]any, error)
	UnmarshalRecord(args []any) error
}

// FieldCodec 由以“字段名 -> 值”视图描述自身的类型实现。
// 当一个类型同时实现两个接口时，RecordCodec 优先。
type FieldCodec interface {
	MarshalFields() (map[string]any, error)
	UnmarshalFields(fields map[string]any) error
}

// Encoder 是自定义编码函数：对象 -> 字节。
type Encoder func(v any) ([]byte, error)

// Decoder 是自定义解码函数：字节 -> 对象。
type Decoder func(data []byte) (any, error)
