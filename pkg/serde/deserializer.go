package serde

import (
	"reflect"

	"github.com/lk2023060901/objpack-go/pkg/buffer"
	"github.com/lk2023060901/objpack-go/pkg/metrics"
	"github.com/lk2023060901/objpack-go/pkg/serde/payload"
	"github.com/lk2023060901/objpack-go/pkg/util/merr"
)

// Deserialize 从完整的信封字节流还原对象。
// ctx 为 nil 时使用进程级默认注册表。
func Deserialize(data []byte, ctx *SerializationContext) (any, error) {
	env, err := ReadSerialized(BytesSource(data), nil)
	if err != nil {
		return nil, err
	}
	return env.Deserialize(ctx)
}

// DeserializeFrom 从来源读出信封并还原对象。
// base 为可选的所有权锚点：还原出的借用缓冲会引用它以避免拷贝。
func DeserializeFrom(src Source, base any, ctx *SerializationContext) (any, error) {
	env, err := ReadSerialized(src, base)
	if err != nil {
		return nil, err
	}
	return env.Deserialize(ctx)
}

// DeserializeComponents 从组件包还原对象。
func DeserializeComponents(bundle *Components, ctx *SerializationContext) (any, error) {
	env, err := FromComponents(bundle)
	if err != nil {
		return nil, err
	}
	return env.Deserialize(ctx)
}

// deserialize 是信封上反序列化的公共实现。
func (e *Envelope) deserialize(ctx *SerializationContext) (any, error) {
	ctx = resolveContext(ctx)

	codec, ok := payload.ByID(e.codecID)
	if !ok {
		err := merr.WrapErrEnvelopeCorrupted("unknown payload codec id")
		countError(err)
		return nil, err
	}

	doc := &document{}
	if err := codec.Unmarshal(e.meta, doc); err != nil {
		countError(err)
		return nil, merr.WrapErrPayloadCodec(err, "unmarshal document")
	}
	if doc.Root == nil || doc.Root.Kind != kindSeq || len(doc.Root.Elems) != 1 {
		err := merr.WrapErrEnvelopeCorrupted("document root is not a single-element sequence")
		countError(err)
		return nil, err
	}

	st := &decodeState{ctx: ctx, buffers: e.buffers}
	v, err := st.decodeValue(doc.Root.Elems[0], "$")
	if err != nil {
		metrics.DeserializeTotal.WithLabelValues(st.rootStrategy(doc.Root.Elems[0]), metrics.StatusFail).Inc()
		countError(err)
		return nil, err
	}
	metrics.DeserializeTotal.WithLabelValues(st.rootStrategy(doc.Root.Elems[0]), metrics.StatusSuccess).Inc()
	return v, nil
}

// decodeState 承载一次反序列化走查的可变状态。
// cursor 强制缓冲按产出顺序消费：段引用必须单调递增，
// 组件包被乱序重组时在这里显式失败而不是还原出错误数据。
type decodeState struct {
	ctx     *SerializationContext
	buffers []*buffer.Buffer
	cursor  int32
}

func (st *decodeState) rootStrategy(n *node) string {
	switch n.Kind {
	case kindOpaque:
		return metrics.StrategyOpaque
	case kindCustom:
		return metrics.StrategyCustom
	case kindRecord, kindFields:
		return metrics.StrategyGeneric
	default:
		return metrics.StrategyValue
	}
}

func (st *decodeState) takeBuffer(ref int32) (*buffer.Buffer, error) {
	if ref < 0 || int(ref) >= len(st.buffers) || ref != st.cursor {
		return nil, merr.WrapErrBufferExhausted(int(ref), len(st.buffers))
	}
	st.cursor++
	return st.buffers[ref], nil
}

func (st *decodeState) decodeValue(n *node, path string) (any, error) {
	switch n.Kind {
	case kindValue:
		return n.Value, nil

	case kindSeq:
		out := make([]any, 0, len(n.Elems))
		for i, child := range n.Elems {
			v, err := st.decodeValue(child, path+"["+itoa(i)+"]")
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil

	case kindMap:
		if len(n.Keys) != len(n.Elems) {
			return nil, merr.WrapErrEnvelopeCorrupted("map keys/elems length mismatch at " + path)
		}
		out := make(map[string]any, len(n.Keys))
		for i, k := range n.Keys {
			v, err := st.decodeValue(n.Elems[i], path+"."+k)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil

	case kindBytes:
		buf, err := st.takeBuffer(n.Ref)
		if err != nil {
			return nil, err
		}
		if n.View {
			return buf, nil
		}
		return buf.Bytes(), nil

	case kindOpaque:
		// opaque 段绕过反向映射：直接交给兜底解码器还原。
		buf, err := st.takeBuffer(n.Ref)
		if err != nil {
			return nil, err
		}
		v, err := st.ctx.blobDecode(buf.Bytes())
		if err != nil {
			return nil, merr.WrapErrBlobCodec(err, "at "+path)
		}
		return v, nil

	case kindCustom:
		entry := st.ctx.lookupID(n.TypeID)
		if entry == nil {
			return nil, merr.WrapErrTypeIDUnregistered(n.TypeID, "at "+path)
		}
		buf, err := st.takeBuffer(n.Ref)
		if err != nil {
			return nil, err
		}
		if entry.decode == nil {
			return nil, merr.WrapErrConfiguration(n.TypeID, "payload requires a custom decoder")
		}
		v, err := entry.decode(buf.Bytes())
		if err != nil {
			return nil, merr.WrapErrPayloadCodec(err, "custom decode at "+path)
		}
		return v, nil

	case kindRecord:
		entry := st.ctx.lookupID(n.TypeID)
		if entry == nil {
			return nil, merr.WrapErrTypeIDUnregistered(n.TypeID, "at "+path)
		}
		args := make([]any, 0, len(n.Elems))
		for i, child := range n.Elems {
			v, err := st.decodeValue(child, path+"#"+itoa(i))
			if err != nil {
				return nil, err
			}
			args = append(args, v)
		}
		return st.construct(entry, n.TypeID, path, func(target any) error {
			rc, ok := target.(RecordCodec)
			if !ok {
				return merr.WrapErrTypeUnserializable(target, n.TypeID, "no record capability")
			}
			return rc.UnmarshalRecord(args)
		})

	case kindFields:
		entry := st.ctx.lookupID(n.TypeID)
		if entry == nil {
			return nil, merr.WrapErrTypeIDUnregistered(n.TypeID, "at "+path)
		}
		if len(n.Keys) != len(n.Elems) {
			return nil, merr.WrapErrEnvelopeCorrupted("fields keys/elems length mismatch at " + path)
		}
		fields := make(map[string]any, len(n.Keys))
		for i, k := range n.Keys {
			v, err := st.decodeValue(n.Elems[i], path+"."+k)
			if err != nil {
				return nil, err
			}
			fields[k] = v
		}
		return st.construct(entry, n.TypeID, path, func(target any) error {
			fc, ok := target.(FieldCodec)
			if !ok {
				return merr.WrapErrTypeUnserializable(target, n.TypeID, "no field capability")
			}
			return fc.UnmarshalFields(fields)
		})

	default:
		return nil, merr.WrapErrEnvelopeCorrupted("unknown node kind at " + path)
	}
}

// construct 执行两阶段重建：
// 先分配未初始化实例（跳过任何构造逻辑），再由 populate 填充。
// 注册条目指向接口类型时无法分配实例，视为配置错误。
func (st *decodeState) construct(entry *typeEntry, typeID, path string, populate func(target any) error) (any, error) {
	if entry.goType.Kind() == reflect.Interface {
		return nil, merr.WrapErrConfiguration(typeID, "cannot construct interface type "+entry.goType.String())
	}
	pv := reflect.New(entry.goType)
	if err := populate(pv.Interface()); err != nil {
		return nil, merr.WrapErrTypeUnserializable(pv.Interface(), typeID, "at "+path+": "+err.Error())
	}
	return pv.Elem().Interface(), nil
}

func countError(err error) {
	metrics.SerdeErrors.WithLabelValues(itoa(int(merr.Code(err)))).Inc()
}
