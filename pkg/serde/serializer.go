package serde

import (
	"reflect"
	"sort"
	"strconv"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/lk2023060901/objpack-go/pkg/buffer"
	"github.com/lk2023060901/objpack-go/pkg/log"
	"github.com/lk2023060901/objpack-go/pkg/metrics"
	"github.com/lk2023060901/objpack-go/pkg/util/merr"
)

// largeEnvelopeBytes 之上的信封会触发限流告警日志。
var largeEnvelopeBytes = atomic.NewInt64(256 << 20)

// SetLargeEnvelopeThreshold 调整触发大信封告警的字节数，非正值表示关闭告警。
func SetLargeEnvelopeThreshold(bytes int64) {
	largeEnvelopeBytes.Store(bytes)
}

// Serialize 将一个对象序列化为信封。
// ctx 为 nil 时使用进程级默认注册表。
//
// 对象先被包装成单元素序列再进入编码走查，
// 顶层标量与复合对象图由此共享同一条路径。
func Serialize(v any, ctx *SerializationContext) (*Envelope, error) {
	ctx = resolveContext(ctx)

	st := &encodeState{ctx: ctx}
	root, err := st.encodeValue(v, "$")
	if err != nil {
		metrics.SerializeTotal.WithLabelValues(st.rootStrategy(), metrics.StatusFail).Inc()
		countError(err)
		return nil, err
	}

	doc := &document{
		Version: documentVersion,
		Root:    &node{Kind: kindSeq, Ref: noRef, Elems: []*node{root}},
	}
	meta, err := ctx.payloadCodec.Marshal(doc)
	if err != nil {
		metrics.SerializeTotal.WithLabelValues(st.rootStrategy(), metrics.StatusFail).Inc()
		countError(err)
		return nil, merr.WrapErrPayloadCodec(err, "marshal document")
	}

	env := &Envelope{
		codecID:   ctx.payloadCodec.ID(),
		meta:      meta,
		buffers:   st.buffers,
		numOpaque: st.numOpaque,
		numArray:  st.numArray,
	}

	metrics.SerializeTotal.WithLabelValues(st.rootStrategy(), metrics.StatusSuccess).Inc()
	metrics.EnvelopeBytes.Observe(float64(env.TotalBytes()))
	metrics.EnvelopeRawBuffers.Observe(float64(len(env.buffers)))

	if limit := largeEnvelopeBytes.Load(); limit > 0 && env.TotalBytes() > limit {
		log.RatedWarn(1.0, "serialized envelope is very large",
			zap.Int64("totalBytes", env.TotalBytes()),
			zap.Int("rawBuffers", len(env.buffers)))
	}
	return env, nil
}

// SerializeTo 序列化对象并把信封字节写入 sink。
func SerializeTo(v any, sink Sink, ctx *SerializationContext) error {
	env, err := Serialize(v, ctx)
	if err != nil {
		return err
	}
	return env.WriteTo(sink)
}

// encodeState 承载一次序列化走查的可变状态：
// 缓冲按产出顺序追加，下标即文档树中的段引用。
type encodeState struct {
	ctx       *SerializationContext
	buffers   []*buffer.Buffer
	numOpaque int
	numArray  int
	rootKind  nodeKind
}

func (st *encodeState) rootStrategy() string {
	switch st.rootKind {
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

func (st *encodeState) addOpaque(data []byte) int32 {
	st.buffers = append(st.buffers, buffer.Owned(data))
	st.numOpaque++
	return int32(len(st.buffers) - 1)
}

func (st *encodeState) addArray(buf *buffer.Buffer) int32 {
	st.buffers = append(st.buffers, buf)
	st.numArray++
	return int32(len(st.buffers) - 1)
}

// encodeValue 编码一个值，path 用于错误标注（形如 $.rows[3].blob）。
//
// 走查规则：
//  1. []byte 与 *buffer.Buffer 直接提升为数组段（零拷贝）；
//  2. 注册表命中的类型按注册策略编码；
//  3. []any 与 map[string]any 逐元素递归；
//  4. 未注册的结构体视为未知类型显式失败；
//  5. 其余值原样透传，交给 payload.Codec。
func (st *encodeState) encodeValue(v any, path string) (*node, error) {
	n, err := st.encodeValueInner(v, path)
	if err != nil {
		return nil, err
	}
	if path == "$" {
		st.rootKind = n.Kind
	}
	return n, nil
}

func (st *encodeState) encodeValueInner(v any, path string) (*node, error) {
	if v == nil {
		return &node{Kind: kindValue, Ref: noRef}, nil
	}

	switch data := v.(type) {
	case *buffer.Buffer:
		return &node{Kind: kindBytes, Ref: st.addArray(data), View: true}, nil
	case []byte:
		return &node{Kind: kindBytes, Ref: st.addArray(buffer.Borrowed(data, nil))}, nil
	}

	t := reflect.TypeOf(v)
	if entry := st.ctx.lookup(t); entry != nil {
		return st.encodeRegistered(v, entry, path)
	}

	switch val := v.(type) {
	case []any:
		elems := make([]*node, 0, len(val))
		for i, item := range val {
			child, err := st.encodeValue(item, path+"["+itoa(i)+"]")
			if err != nil {
				return nil, err
			}
			elems = append(elems, child)
		}
		return &node{Kind: kindSeq, Ref: noRef, Elems: elems}, nil

	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		// 排序保证同一输入产出字节稳定。
		sort.Strings(keys)
		elems := make([]*node, 0, len(keys))
		for _, k := range keys {
			child, err := st.encodeValue(val[k], path+"."+k)
			if err != nil {
				return nil, err
			}
			elems = append(elems, child)
		}
		return &node{Kind: kindMap, Ref: noRef, Keys: keys, Elems: elems}, nil
	}

	// 未注册的结构体（或其指针）不允许静默透传：
	// 它大概率是忘了注册的业务类型，静默编码会在对端还原出错误的形状。
	kind := t.Kind()
	if kind == reflect.Pointer {
		kind = t.Elem().Kind()
	}
	if kind == reflect.Struct {
		return nil, merr.WrapErrTypeUnknown(v, "at "+path)
	}

	return &node{Kind: kindValue, Ref: noRef, Value: v}, nil
}

// encodeRegistered 按注册策略编码一个命中注册表的对象。
func (st *encodeState) encodeRegistered(v any, entry *typeEntry, path string) (*node, error) {
	switch entry.strategy {
	case strategyOpaque:
		// 兜底编码统一走值类型：注册时只向 gob 注册了去指针后的类型。
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && !rv.IsNil() {
			v = rv.Elem().Interface()
		}
		data, err := st.ctx.blobEncode(v)
		if err != nil {
			return nil, merr.WrapErrBlobCodec(err, "at "+path)
		}
		return &node{Kind: kindOpaque, TypeID: entry.typeID, Ref: st.addOpaque(data)}, nil

	case strategyCustom:
		data, err := entry.encode(v)
		if err != nil {
			return nil, merr.WrapErrPayloadCodec(err, "custom encode at "+path)
		}
		return &node{Kind: kindCustom, TypeID: entry.typeID, Ref: st.addArray(buffer.Owned(data))}, nil

	default:
		return st.encodeGeneric(v, entry, path)
	}
}

// encodeGeneric 执行通用反射策略：RecordCodec 优先于 FieldCodec。
func (st *encodeState) encodeGeneric(v any, entry *typeEntry, path string) (*node, error) {
	capable := capabilityTarget(v)

	if rc, ok := capable.(RecordCodec); ok {
		args, err := rc.MarshalRecord()
		if err != nil {
			return nil, merr.WrapErrTypeUnserializable(v, entry.typeID, "marshal record at "+path+": "+err.Error())
		}
		elems := make([]*node, 0, len(args))
		for i, arg := range args {
			child, err := st.encodeValue(arg, path+"#"+itoa(i))
			if err != nil {
				return nil, err
			}
			elems = append(elems, child)
		}
		return &node{Kind: kindRecord, TypeID: entry.typeID, Ref: noRef, Elems: elems}, nil
	}

	if fc, ok := capable.(FieldCodec); ok {
		fields, err := fc.MarshalFields()
		if err != nil {
			return nil, merr.WrapErrTypeUnserializable(v, entry.typeID, "marshal fields at "+path+": "+err.Error())
		}
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		elems := make([]*node, 0, len(keys))
		for _, k := range keys {
			child, err := st.encodeValue(fields[k], path+"."+k)
			if err != nil {
				return nil, err
			}
			elems = append(elems, child)
		}
		return &node{Kind: kindFields, TypeID: entry.typeID, Ref: noRef, Keys: keys, Elems: elems}, nil
	}

	return nil, merr.WrapErrTypeUnserializable(v, entry.typeID, "at "+path)
}

// capabilityTarget 返回用于能力断言的目标：
// 当方法集挂在指针接收者上而 v 是值时，补一次取址。
func capabilityTarget(v any) any {
	switch v.(type) {
	case RecordCodec, FieldCodec:
		return v
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		return v
	}
	pv := reflect.New(rv.Type())
	pv.Elem().Set(rv)
	return pv.Interface()
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
