package serde

import (
	"github.com/lk2023060901/objpack-go/pkg/buffer"
	"github.com/lk2023060901/objpack-go/pkg/util/merr"
)

// Components 是信封的分解形态：元数据与各原始缓冲保持独立，
// 适合交给自带分片能力的传输层或对象存储，省掉一次整体拼接。
//
// Data[0] 固定是文档元数据，其后依产出顺序排列原始缓冲。
// 不变式：len(Data) == NumRaw+1 且 NumRaw == NumOpaque+NumArray。
type Components struct {
	NumOpaque int
	NumArray  int
	NumRaw    int
	Data      []*buffer.Buffer
}

// ToComponents 把信封分解为组件包。
// 原始缓冲与信封共享内存；元数据组件另拷一份并把 codec id 前置一个字节，
// 使组件包脱离信封后仍可独立重组。
func (e *Envelope) ToComponents() *Components {
	data := make([]*buffer.Buffer, 0, len(e.buffers)+1)
	meta := make([]byte, 1+len(e.meta))
	meta[0] = e.codecID
	copy(meta[1:], e.meta)
	data = append(data, buffer.Owned(meta))
	data = append(data, e.buffers...)
	return &Components{
		NumOpaque: e.numOpaque,
		NumArray:  e.numArray,
		NumRaw:    len(e.buffers),
		Data:      data,
	}
}

// FromComponents 从组件包重组一只信封。
// 组件缺损或计数不自洽时返回 ErrComponentsInvalid。
func FromComponents(bundle *Components) (*Envelope, error) {
	if bundle == nil {
		return nil, merr.WrapErrComponentsInvalid(1, 0, "nil bundle")
	}
	if len(bundle.Data) != bundle.NumRaw+1 {
		return nil, merr.WrapErrComponentsInvalid(bundle.NumRaw+1, len(bundle.Data))
	}
	if bundle.NumRaw != bundle.NumOpaque+bundle.NumArray {
		return nil, merr.WrapErrComponentsInvalid(bundle.NumOpaque+bundle.NumArray, bundle.NumRaw,
			"segment counts do not sum to raw buffer count")
	}
	for i, buf := range bundle.Data {
		if buf == nil {
			return nil, merr.WrapErrComponentsInvalid(bundle.NumRaw+1, i, "nil component buffer")
		}
	}
	metaBuf := bundle.Data[0].Bytes()
	if len(metaBuf) < 1 {
		return nil, merr.WrapErrComponentsInvalid(1, 0, "meta component is empty")
	}
	return &Envelope{
		codecID:   metaBuf[0],
		meta:      metaBuf[1:],
		buffers:   bundle.Data[1:],
		numOpaque: bundle.NumOpaque,
		numArray:  bundle.NumArray,
	}, nil
}
