package serde

import (
	"encoding/binary"
	"io"

	"github.com/lk2023060901/objpack-go/internal/pool/bytebuffer"
	"github.com/lk2023060901/objpack-go/pkg/buffer"
	"github.com/lk2023060901/objpack-go/pkg/util/conc"
	"github.com/lk2023060901/objpack-go/pkg/util/merr"
)

// 信封头部布局（BigEndian）：
//
//	magic      uint32
//	version    uint8
//	codecID    uint8
//	reserved   uint16
//	numOpaque  uint32
//	numArray   uint32
//	numRaw     uint32
//	metaLen    uint32
//	rawLen[i]  uint64 × numRaw
//
// 之后依次是 meta 字节与各原始缓冲的内容。
const (
	envelopeMagic      = uint32(0x4F504B31) // "OPK1"
	envelopeVersion    = uint8(1)
	envelopeFixedBytes = 24
)

// Envelope 是一次序列化的产物：文档元数据加上按产出顺序排列的原始缓冲。
// 信封不可变，可以被多次写出或分解。
type Envelope struct {
	codecID   byte
	meta      []byte
	buffers   []*buffer.Buffer
	numOpaque int
	numArray  int

	// base 是借用缓冲的所有权锚点，读取侧零拷贝时持有来源。
	base any
}

// NumOpaqueSegments 返回兜底编码产出的段数。
func (e *Envelope) NumOpaqueSegments() int { return e.numOpaque }

// NumArraySegments 返回数组/自定义编码产出的段数。
func (e *Envelope) NumArraySegments() int { return e.numArray }

// NumRawBuffers 返回原始缓冲总数。
func (e *Envelope) NumRawBuffers() int { return len(e.buffers) }

// headerBytes 返回头部区（定长头加原始缓冲长度表）的字节数。
func (e *Envelope) headerBytes() int {
	return envelopeFixedBytes + 8*len(e.buffers)
}

// TotalBytes 返回完整写出这只信封需要的字节数。
func (e *Envelope) TotalBytes() int64 {
	n := int64(e.headerBytes()) + int64(len(e.meta))
	for _, buf := range e.buffers {
		n += int64(buf.Len())
	}
	return n
}

// Deserialize 在不经过字节流的情况下直接还原信封承载的对象。
func (e *Envelope) Deserialize(ctx *SerializationContext) (any, error) {
	return e.deserialize(ctx)
}

// encodeHeader 把头部区编码进 dst，dst 长度必须不小于 headerBytes。
func (e *Envelope) encodeHeader(dst []byte) {
	binary.BigEndian.PutUint32(dst[0:4], envelopeMagic)
	dst[4] = envelopeVersion
	dst[5] = e.codecID
	dst[6], dst[7] = 0, 0
	binary.BigEndian.PutUint32(dst[8:12], uint32(e.numOpaque))
	binary.BigEndian.PutUint32(dst[12:16], uint32(e.numArray))
	binary.BigEndian.PutUint32(dst[16:20], uint32(len(e.buffers)))
	binary.BigEndian.PutUint32(dst[20:24], uint32(len(e.meta)))
	for i, buf := range e.buffers {
		binary.BigEndian.PutUint64(dst[envelopeFixedBytes+8*i:], uint64(buf.Len()))
	}
}

// WriteTo 把信封完整写入 sink。
// sink 同时实现 io.Closer 时，无论成功失败都会被关闭。
func (e *Envelope) WriteTo(sink Sink) (err error) {
	if closer, ok := sink.(io.Closer); ok {
		defer func() {
			if cerr := closer.Close(); cerr != nil && err == nil {
				err = merr.WrapErrSinkWrite(cerr, "close sink")
			}
		}()
	}

	header := bytebuffer.Get()
	defer bytebuffer.Put(header)
	header.B = append(header.B[:0], make([]byte, e.headerBytes())...)
	e.encodeHeader(header.B)

	if _, werr := sink.Write(header.B); werr != nil {
		return merr.WrapErrSinkWrite(werr, "write header")
	}
	if _, werr := sink.Write(e.meta); werr != nil {
		return merr.WrapErrSinkWrite(werr, "write meta")
	}
	for i, buf := range e.buffers {
		if _, werr := sink.Write(buf.Bytes()); werr != nil {
			return merr.WrapErrSinkWrite(werr, "write raw buffer "+itoa(i))
		}
	}
	return nil
}

// ToBuffer 把信封写入一块新分配的连续内存，返回自有的缓冲视图。
// parallelism 大于 1 时原始缓冲由协程池并行拷入各自的不相交区间，
// 产出的字节与 WriteTo 完全一致。
func (e *Envelope) ToBuffer(parallelism int) (*buffer.Buffer, error) {
	out := make([]byte, e.TotalBytes())

	e.encodeHeader(out)
	off := e.headerBytes()
	off += copy(out[off:], e.meta)

	if parallelism <= 1 || len(e.buffers) <= 1 {
		for _, buf := range e.buffers {
			off += copy(out[off:], buf.Bytes())
		}
		return buffer.Owned(out), nil
	}

	pool := conc.NewPool[struct{}](parallelism)
	defer pool.Release()

	futures := make([]*conc.Future[struct{}], 0, len(e.buffers))
	for _, buf := range e.buffers {
		buf := buf
		region := out[off : off+buf.Len()]
		off += buf.Len()
		futures = append(futures, pool.Submit(func() (struct{}, error) {
			copy(region, buf.Bytes())
			return struct{}{}, nil
		}))
	}
	if err := conc.AwaitAll(futures...); err != nil {
		return nil, err
	}
	return buffer.Owned(out), nil
}

// ReadSerialized 从来源解析一只信封。
// base 非 nil 时原始缓冲零拷贝借用来源内存并以 base 为所有权锚点，
// 否则逐段读入新分配的内存。
func ReadSerialized(src Source, base any) (*Envelope, error) {
	size := src.Size()
	if size < envelopeFixedBytes {
		return nil, merr.WrapErrEnvelopeCorrupted("source smaller than fixed header")
	}

	var fixed [envelopeFixedBytes]byte
	if _, err := src.ReadAt(fixed[:], 0); err != nil {
		return nil, merr.WrapErrSourceRead(err, "read header")
	}
	if binary.BigEndian.Uint32(fixed[0:4]) != envelopeMagic {
		return nil, merr.WrapErrEnvelopeCorrupted("bad magic")
	}
	if fixed[4] != envelopeVersion {
		return nil, merr.WrapErrEnvelopeCorrupted("unsupported version " + itoa(int(fixed[4])))
	}
	codecID := fixed[5]
	numOpaque := int(binary.BigEndian.Uint32(fixed[8:12]))
	numArray := int(binary.BigEndian.Uint32(fixed[12:16]))
	numRaw := int(binary.BigEndian.Uint32(fixed[16:20]))
	metaLen := int(binary.BigEndian.Uint32(fixed[20:24]))

	if numRaw != numOpaque+numArray {
		return nil, merr.WrapErrEnvelopeCorrupted("segment counts do not sum to raw buffer count")
	}
	lensBytes := int64(8 * numRaw)
	if int64(envelopeFixedBytes)+lensBytes+int64(metaLen) > size {
		return nil, merr.WrapErrEnvelopeCorrupted("header lengths exceed source size")
	}

	rawLens := make([]int64, numRaw)
	if numRaw > 0 {
		lens := make([]byte, lensBytes)
		if _, err := src.ReadAt(lens, envelopeFixedBytes); err != nil {
			return nil, merr.WrapErrSourceRead(err, "read raw lengths")
		}
		for i := range rawLens {
			// 单条长度按无符号校验，符号位被置位的脏数据在这里判定损坏。
			l := binary.BigEndian.Uint64(lens[8*i : 8*i+8])
			if l > uint64(size) {
				return nil, merr.WrapErrEnvelopeCorrupted("raw buffer length exceeds source size")
			}
			rawLens[i] = int64(l)
		}
	}

	// 逐条累加并即时校验，总和永远不会溢出 int64。
	total := int64(envelopeFixedBytes) + lensBytes + int64(metaLen)
	for _, l := range rawLens {
		total += l
		if total > size {
			return nil, merr.WrapErrEnvelopeCorrupted("raw buffer lengths exceed source size")
		}
	}

	// 来源暴露底层字节时整段借用，避免 meta 和缓冲的拷贝。
	var backing []byte
	if bp, ok := src.(bytesProvider); ok {
		backing = bp.Bytes()
	}

	off := int64(envelopeFixedBytes) + lensBytes
	var meta []byte
	if backing != nil {
		meta = backing[off : off+int64(metaLen)]
	} else {
		meta = make([]byte, metaLen)
		if _, err := src.ReadAt(meta, off); err != nil {
			return nil, merr.WrapErrSourceRead(err, "read meta")
		}
	}
	off += int64(metaLen)

	buffers := make([]*buffer.Buffer, 0, numRaw)
	for i, l := range rawLens {
		if backing != nil {
			buffers = append(buffers, buffer.Borrowed(backing[off:off+l], base))
		} else {
			data := make([]byte, l)
			if _, err := src.ReadAt(data, off); err != nil {
				return nil, merr.WrapErrSourceRead(err, "read raw buffer "+itoa(i))
			}
			buffers = append(buffers, buffer.Owned(data))
		}
		off += l
	}

	return &Envelope{
		codecID:   codecID,
		meta:      meta,
		buffers:   buffers,
		numOpaque: numOpaque,
		numArray:  numArray,
		base:      base,
	}, nil
}
