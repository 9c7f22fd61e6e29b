package buffer

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type BufferSuite struct {
	suite.Suite
}

func (s *BufferSuite) TestOwned() {
	buf := Owned([]byte("hello"))
	s.True(buf.IsOwned())
	s.Nil(buf.Base())
	s.Equal(5, buf.Len())
	s.Equal([]byte("hello"), buf.Bytes())
}

func (s *BufferSuite) TestBorrowed() {
	anchor := &struct{ name string }{"source"}
	backing := []byte("0123456789")

	buf := Borrowed(backing[2:6], anchor)
	s.False(buf.IsOwned())
	s.Same(anchor, buf.Base())
	s.Equal([]byte("2345"), buf.Bytes())

	// 子视图共享内存与锚点。
	sub := buf.Slice(1, 3)
	s.Equal([]byte("34"), sub.Bytes())
	s.Same(anchor, sub.Base())
	s.False(sub.IsOwned())
}

func (s *BufferSuite) TestClone() {
	backing := []byte("abc")
	buf := Borrowed(backing, nil)

	clone := buf.Clone()
	s.True(clone.IsOwned())
	s.True(clone.Equal(buf))

	// 深拷贝后与原内存脱钩。
	backing[0] = 'x'
	s.False(clone.Equal(buf))
}

func (s *BufferSuite) TestEqual() {
	s.True(Owned([]byte("a")).Equal(Borrowed([]byte("a"), nil)))
	s.False(Owned([]byte("a")).Equal(Owned([]byte("b"))))

	var nilBuf *Buffer
	s.False(Owned([]byte("a")).Equal(nil))
	s.True(nilBuf.Equal(nil))
}

func TestBuffer(t *testing.T) {
	suite.Run(t, new(BufferSuite))
}
