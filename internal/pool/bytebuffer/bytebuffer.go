package bytebuffer

import (
	"github.com/valyala/bytebufferpool"
)

// 本包对 valyala/bytebufferpool 做一层薄封装，
// 为信封编码路径提供可复用的临时字节缓冲，降低频繁 make 带来的分配与 GC 压力。

// ByteBuffer 是池化的字节缓冲，直接复用 bytebufferpool 的实现。
// 通过 B 字段访问底层切片。
type ByteBuffer = bytebufferpool.ByteBuffer

var pool bytebufferpool.Pool

// Get 从池中取出一个空的 ByteBuffer。
// 用完后必须调用 Put 归还，否则失去池化意义。
func Get() *ByteBuffer {
	return pool.Get()
}

// Put 将 ByteBuffer 归还到池中。
// 归还后调用方不得再持有或使用该缓冲。
func Put(b *ByteBuffer) {
	pool.Put(b)
}
