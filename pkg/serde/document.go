package serde

// 文档树是序列化引擎的中间表示：
// 元数据（类型标签、结构、段引用）进入文档树并由 payload.Codec 统一编码，
// 真正的字节负载（opaque 段、数组段）被提升到有序的缓冲列表中，
// 文档树里只保留下标引用。这样缓冲可以按引用转移而无需拷贝。

type nodeKind uint8

const (
	// kindValue 表示原样透传给 payload.Codec 的值。
	kindValue nodeKind = iota + 1
	// kindSeq 表示逐元素编码的 []any。
	kindSeq
	// kindMap 表示逐元素编码的 map[string]any。
	kindMap
	// kindBytes 表示被提升为数组段的 []byte 或 *buffer.Buffer。
	kindBytes
	// kindOpaque 表示经 blob 编码器产出的 opaque 段。
	kindOpaque
	// kindCustom 表示经自定义编码器产出的数组段。
	kindCustom
	// kindRecord 表示构造参数式的通用反射结果。
	kindRecord
	// kindFields 表示字段包式的通用反射结果。
	kindFields
)

// node 是文档树的一个节点。
// 字段按 Kind 的不同选择性使用：
//
//	kindValue          -> Value
//	kindSeq            -> Elems
//	kindMap            -> Keys + Elems（按 Keys 排序，保证字节稳定）
//	kindBytes          -> Ref（View 标记来源是否为 *buffer.Buffer）
//	kindOpaque         -> TypeID + Ref
//	kindCustom         -> TypeID + Ref
//	kindRecord         -> TypeID + Elems
//	kindFields         -> TypeID + Keys + Elems
type node struct {
	Kind   nodeKind
	TypeID string
	Ref    int32
	View   bool
	Value  any
	Keys   []string
	Elems  []*node
}

// document 是一次序列化的完整元数据。
// Root 恒为单元素的 kindSeq：顶层标量和复合对象走同一条路径。
type document struct {
	Version int32
	Root    *node
}

const documentVersion int32 = 1

// noRef 表示节点不引用任何缓冲段。
const noRef int32 = -1
