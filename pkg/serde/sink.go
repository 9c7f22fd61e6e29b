package serde

import (
	"io"
)

// Sink 是信封字节的输出端，由外部系统提供。
// 如果实现同时满足 io.Closer，WriteTo 会在所有退出路径上关闭它。
type Sink interface {
	io.Writer
}

// Source 是随机访问的字节来源，由外部系统提供。
// 实现 bytesProvider 的来源可以被零拷贝借用。
type Source interface {
	io.ReaderAt

	// Size 返回来源的总字节数。
	Size() int64
}

// bytesProvider 是来源的零拷贝快速路径：
// 直接暴露底层字节，读取端以借用视图引用它。
type bytesProvider interface {
	Bytes() []byte
}

// BytesSource 把内存中的字节切片当作 Source 使用。
type BytesSource []byte

var (
	_ Source        = BytesSource(nil)
	_ bytesProvider = BytesSource(nil)
)

func (s BytesSource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(s)) {
		return 0, io.EOF
	}
	n := copy(p, s[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s BytesSource) Size() int64 {
	return int64(len(s))
}

func (s BytesSource) Bytes() []byte {
	return s
}

// CountingSink 只统计写入的字节数而不落地，
// 用于 TotalBytes 的空跑写出。
type CountingSink struct {
	n int64
}

var _ Sink = (*CountingSink)(nil)

func (s *CountingSink) Write(p []byte) (int, error) {
	s.n += int64(len(p))
	return len(p), nil
}

// Count 返回截至目前统计到的字节数。
func (s *CountingSink) Count() int64 {
	return s.n
}
