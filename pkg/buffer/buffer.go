// Package buffer 提供信封与组件包使用的字节缓冲视图。
//
// 一个 Buffer 要么持有自有内存（Owned），要么借用外部内存（Borrowed）。
// 借用视图可以附带一个 base 锚点对象：只要视图存活，锚点就不会被回收，
// 从而允许零拷贝地引用来源缓冲的某个区间。
package buffer

import (
	"bytes"
)

// Buffer 是一段只读字节区间的视图。
// 零值不可用，必须通过 Owned/Borrowed 创建。
type Buffer struct {
	data  []byte
	base  any
	owned bool
}

// Owned 创建一个持有自有内存的 Buffer。
// data 的所有权移交给 Buffer，调用方之后不应再修改它。
func Owned(data []byte) *Buffer {
	return &Buffer{
		data:  data,
		owned: true,
	}
}

// Borrowed 创建一个借用外部内存的 Buffer。
// base 为可选的所有权锚点；传 nil 表示调用方自行保证 data 的生命周期。
func Borrowed(data []byte, base any) *Buffer {
	return &Buffer{
		data: data,
		base: base,
	}
}

// Bytes 返回底层字节切片。
// 调用方不得修改返回的切片内容。
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Len 返回视图长度。
func (b *Buffer) Len() int {
	return len(b.data)
}

// Base 返回借用视图的所有权锚点，自有视图返回 nil。
func (b *Buffer) Base() any {
	return b.base
}

// IsOwned 表示视图是否持有自有内存。
func (b *Buffer) IsOwned() bool {
	return b.owned
}

// Slice 返回 [from, to) 区间的子视图。
// 子视图与父视图共享内存和 base 锚点。
func (b *Buffer) Slice(from, to int) *Buffer {
	return &Buffer{
		data:  b.data[from:to],
		base:  b.base,
		owned: false,
	}
}

// Clone 返回一份深拷贝的自有 Buffer。
func (b *Buffer) Clone() *Buffer {
	return Owned(bytes.Clone(b.data))
}

// Equal 判断两个视图的内容是否逐字节相等。
func (b *Buffer) Equal(other *Buffer) bool {
	if b == nil || other == nil {
		return b == other
	}
	return bytes.Equal(b.data, other.data)
}
