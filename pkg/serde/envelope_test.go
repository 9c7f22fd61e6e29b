package serde

import (
	"bytes"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/objpack-go/pkg/buffer"
	"github.com/lk2023060901/objpack-go/pkg/util/merr"
)

// closableSink 记录写入与关闭，用于 WriteTo 的关闭语义测试。
type closableSink struct {
	bytes.Buffer
	closed   bool
	closeErr error
}

func (s *closableSink) Close() error {
	s.closed = true
	return s.closeErr
}

// failingSink 在第 n 次写入时报错。
type failingSink struct {
	failAt int
	calls  int
}

func (s *failingSink) Write(p []byte) (int, error) {
	s.calls++
	if s.calls >= s.failAt {
		return 0, errors.New("pipe closed")
	}
	return len(p), nil
}

type EnvelopeSuite struct {
	suite.Suite

	ctx *SerializationContext
	env *Envelope
}

func (s *EnvelopeSuite) SetupTest() {
	s.ctx = NewContext()
	s.Require().NoError(s.ctx.RegisterType(&vec{}, "vec"))
	s.Require().NoError(s.ctx.RegisterType(&grid{}, "grid", WithOpaqueBlob()))

	env, err := Serialize(map[string]any{
		"v":   vec{X: 1, Y: 2, Tag: "v"},
		"g":   grid{Rows: 3, Data: []float64{1, 2, 3}},
		"raw": []byte("some raw bytes"),
	}, s.ctx)
	s.Require().NoError(err)
	s.env = env
}

func (s *EnvelopeSuite) TestTotalBytesMatchesWriteTo() {
	sink := &CountingSink{}
	s.Require().NoError(s.env.WriteTo(sink))
	s.Equal(s.env.TotalBytes(), sink.Count())
}

func (s *EnvelopeSuite) TestToBufferMatchesWriteTo() {
	var out bytes.Buffer
	s.Require().NoError(s.env.WriteTo(&out))

	serial, err := s.env.ToBuffer(1)
	s.Require().NoError(err)
	s.True(serial.IsOwned())
	s.Equal(out.Bytes(), serial.Bytes())

	// 并行拷贝产出的字节必须与串行完全一致。
	parallel, err := s.env.ToBuffer(4)
	s.Require().NoError(err)
	s.True(serial.Equal(parallel))
}

func (s *EnvelopeSuite) TestWriteToClosesSink() {
	sink := &closableSink{}
	s.Require().NoError(s.env.WriteTo(sink))
	s.True(sink.closed)

	// 关闭失败要作为写出错误上报。
	sink = &closableSink{closeErr: errors.New("flush failed")}
	s.ErrorIs(s.env.WriteTo(sink), merr.ErrSinkWrite)
	s.True(sink.closed)
}

func (s *EnvelopeSuite) TestWriteToSinkError() {
	s.ErrorIs(s.env.WriteTo(&failingSink{failAt: 1}), merr.ErrSinkWrite)
	s.ErrorIs(s.env.WriteTo(&failingSink{failAt: 3}), merr.ErrSinkWrite)
}

func (s *EnvelopeSuite) TestStreamRoundTrip() {
	data, err := s.env.ToBuffer(1)
	s.Require().NoError(err)

	env, err := ReadSerialized(BytesSource(data.Bytes()), nil)
	s.Require().NoError(err)
	s.Equal(s.env.NumOpaqueSegments(), env.NumOpaqueSegments())
	s.Equal(s.env.NumArraySegments(), env.NumArraySegments())
	s.Equal(s.env.NumRawBuffers(), env.NumRawBuffers())

	back, err := env.Deserialize(s.ctx)
	s.Require().NoError(err)
	m := back.(map[string]any)
	s.Equal(vec{X: 1, Y: 2, Tag: "v"}, m["v"])
	s.Equal([]byte("some raw bytes"), m["raw"])
}

func (s *EnvelopeSuite) TestZeroCopyBorrowsSource() {
	data, err := s.env.ToBuffer(1)
	s.Require().NoError(err)

	env, err := ReadSerialized(BytesSource(data.Bytes()), "anchor")
	s.Require().NoError(err)
	for i := 0; i < env.NumRawBuffers(); i++ {
		buf := env.buffers[i]
		s.False(buf.IsOwned())
		s.Equal("anchor", buf.Base())
	}
}

func (s *EnvelopeSuite) TestCorruptedEnvelope() {
	buf, err := s.env.ToBuffer(1)
	s.Require().NoError(err)
	data := buf.Bytes()

	// 截断到定长头以下。
	_, err = ReadSerialized(BytesSource(data[:10]), nil)
	s.ErrorIs(err, merr.ErrEnvelopeCorrupted)

	// 魔数被破坏。
	bad := bytes.Clone(data)
	bad[0] ^= 0xFF
	_, err = ReadSerialized(BytesSource(bad), nil)
	s.ErrorIs(err, merr.ErrEnvelopeCorrupted)

	// 版本不支持。
	bad = bytes.Clone(data)
	bad[4] = 0xEE
	_, err = ReadSerialized(BytesSource(bad), nil)
	s.ErrorIs(err, merr.ErrEnvelopeCorrupted)

	// 声称的缓冲长度超过来源大小。
	bad = bytes.Clone(data)
	bad[31] = 0xFF
	_, err = ReadSerialized(BytesSource(bad), nil)
	s.ErrorIs(err, merr.ErrEnvelopeCorrupted)

	// 长度表符号位被置位：转成有符号后为负，必须判定损坏而非越界。
	bad = bytes.Clone(data)
	bad[envelopeFixedBytes] |= 0x80
	_, err = ReadSerialized(BytesSource(bad), nil)
	s.ErrorIs(err, merr.ErrEnvelopeCorrupted)
}

func (s *EnvelopeSuite) TestComponentsRoundTrip() {
	bundle := s.env.ToComponents()
	s.Equal(s.env.NumRawBuffers(), bundle.NumRaw)
	s.Equal(s.env.NumOpaqueSegments(), bundle.NumOpaque)
	s.Equal(s.env.NumArraySegments(), bundle.NumArray)
	s.Len(bundle.Data, bundle.NumRaw+1)

	back, err := DeserializeComponents(bundle, s.ctx)
	s.Require().NoError(err)
	m := back.(map[string]any)
	s.Equal(vec{X: 1, Y: 2, Tag: "v"}, m["v"])
	s.Equal(grid{Rows: 3, Data: []float64{1, 2, 3}}, m["g"])
	s.Equal([]byte("some raw bytes"), m["raw"])
}

func (s *EnvelopeSuite) TestComponentsShareRawBuffers() {
	bundle := s.env.ToComponents()
	for i := 0; i < bundle.NumRaw; i++ {
		s.Same(s.env.buffers[i], bundle.Data[i+1])
	}
}

func (s *EnvelopeSuite) TestInvalidComponents() {
	_, err := FromComponents(nil)
	s.ErrorIs(err, merr.ErrComponentsInvalid)

	bundle := s.env.ToComponents()

	// 组件数量与计数不符。
	tampered := &Components{
		NumOpaque: bundle.NumOpaque,
		NumArray:  bundle.NumArray,
		NumRaw:    bundle.NumRaw,
		Data:      bundle.Data[:len(bundle.Data)-1],
	}
	_, err = FromComponents(tampered)
	s.ErrorIs(err, merr.ErrComponentsInvalid)

	// 段计数自相矛盾。
	tampered = &Components{
		NumOpaque: bundle.NumOpaque + 1,
		NumArray:  bundle.NumArray,
		NumRaw:    bundle.NumRaw,
		Data:      bundle.Data,
	}
	_, err = FromComponents(tampered)
	s.ErrorIs(err, merr.ErrComponentsInvalid)

	// 组件缺位。
	withNil := make([]*buffer.Buffer, len(bundle.Data))
	copy(withNil, bundle.Data)
	withNil[1] = nil
	tampered = &Components{
		NumOpaque: bundle.NumOpaque,
		NumArray:  bundle.NumArray,
		NumRaw:    bundle.NumRaw,
		Data:      withNil,
	}
	_, err = FromComponents(tampered)
	s.ErrorIs(err, merr.ErrComponentsInvalid)
}

func (s *EnvelopeSuite) TestBufferExhaustedOnMissingSegment() {
	env, err := Serialize([]any{[]byte("a"), []byte("b")}, s.ctx)
	s.Require().NoError(err)
	bundle := env.ToComponents()

	// 丢掉最后一个缓冲并把计数改得自洽：
	// 重组能通过校验，但解码走到第二段时必须显式失败。
	tampered := &Components{
		NumOpaque: 0,
		NumArray:  1,
		NumRaw:    1,
		Data:      bundle.Data[:2],
	}
	_, err = DeserializeComponents(tampered, s.ctx)
	s.ErrorIs(err, merr.ErrBufferExhausted)
}

func (s *EnvelopeSuite) TestSerializeTo() {
	var direct bytes.Buffer
	s.Require().NoError(SerializeTo("payload", &direct, s.ctx))

	env, err := Serialize("payload", s.ctx)
	s.Require().NoError(err)
	expected, err := env.ToBuffer(1)
	s.Require().NoError(err)
	s.Equal(expected.Bytes(), direct.Bytes())
}

func TestEnvelope(t *testing.T) {
	suite.Run(t, new(EnvelopeSuite))
}
