package serde

import (
	"reflect"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/lk2023060901/objpack-go/pkg/log"
	"github.com/lk2023060901/objpack-go/pkg/serde/blob"
	"github.com/lk2023060901/objpack-go/pkg/serde/payload"
	"github.com/lk2023060901/objpack-go/pkg/util/merr"
	"github.com/lk2023060901/objpack-go/pkg/util/typeutil"
)

type strategy uint8

const (
	strategyGeneric strategy = iota
	strategyOpaque
	strategyCustom
)

func (s strategy) String() string {
	switch s {
	case strategyOpaque:
		return "opaque"
	case strategyCustom:
		return "custom"
	default:
		return "generic"
	}
}

// typeEntry 是注册表中一个类型的完整注册信息。
// goType 恒为去指针后的类型；typeID 在同一上下文内唯一。
type typeEntry struct {
	goType   reflect.Type
	typeID   string
	strategy strategy
	encode   Encoder
	decode   Decoder
}

// SerializationContext 是类型注册表：
// 维护 Go 类型与 type id 的双向映射、每个类型的序列化策略，
// 以及 opaque 兜底编解码器。
//
// 并发约定：注册（RegisterType / SetDefaultBlobCodec / SetPayloadCodec）
// 必须在上下文被并发共享之前完成；只读的 Serialize/Deserialize
// 可以安全地并发使用同一个上下文。需要分叉后独立注册时使用 Clone。
type SerializationContext struct {
	log.Binder

	entries   map[reflect.Type]*typeEntry
	byID      map[string]*typeEntry
	opaqueIDs typeutil.TypeIDSet
	ifaces    []reflect.Type

	blobEncode blob.Encoder
	blobDecode blob.Decoder

	payloadCodec payload.Codec
}

// NewContext 创建一个空的注册表。
// opaque 兜底使用 gob 编解码器，文档编码使用 payload.GobCodec。
func NewContext() *SerializationContext {
	enc, dec := blob.NewGobCodec()
	return &SerializationContext{
		entries:      make(map[reflect.Type]*typeEntry),
		byID:         make(map[string]*typeEntry),
		opaqueIDs:    typeutil.NewTypeIDSet(),
		blobEncode:   enc,
		blobDecode:   dec,
		payloadCodec: payload.GobCodec{},
	}
}

// RegisterOption 配置单次注册的策略。
type RegisterOption func(*typeEntry)

// WithOpaqueBlob 将类型标记为 opaque-blob 策略：
// 整个对象经兜底编解码器编码为不透明字节段，
// 反序列化时直接还原、不经过注册表反向校验。
func WithOpaqueBlob() RegisterOption {
	return func(entry *typeEntry) {
		entry.strategy = strategyOpaque
	}
}

// WithCodec 为类型绑定自定义编解码器。
// 自定义编解码器的优先级高于通用反射。
func WithCodec(enc Encoder, dec Decoder) RegisterOption {
	return func(entry *typeEntry) {
		entry.strategy = strategyCustom
		entry.encode = enc
		entry.decode = dec
	}
}

// RegisterType 注册一个类型。prototype 给出类型即可，值本身不被使用；
// 注册接口类型时传接口指针，如 RegisterType((*Shape)(nil), "shape")，
// 且必须搭配 WithCodec：接口无法在解码端构造。
//
// 冲突策略：同一个 type id 绑定到不同类型时返回 ErrConfiguration；
// 同一类型重复注册会幂等地覆盖旧条目（策略允许变化）。
// 静默覆盖会破坏在途数据的往返律，所以这里选择显式失败。
func (c *SerializationContext) RegisterType(prototype any, typeID string, opts ...RegisterOption) error {
	if typeID == "" {
		return merr.WrapErrConfiguration(typeID, "type id must not be empty")
	}
	t := reflect.TypeOf(prototype)
	if t == nil {
		return merr.WrapErrConfiguration(typeID, "prototype must not be nil")
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	entry := &typeEntry{
		goType:   t,
		typeID:   typeID,
		strategy: strategyGeneric,
	}
	for _, opt := range opts {
		opt(entry)
	}
	if entry.strategy == strategyCustom && (entry.encode == nil || entry.decode == nil) {
		return merr.WrapErrConfiguration(typeID, "custom codec requires both encoder and decoder")
	}
	// 接口类型无法经 reflect.New 构造，通用反射策略在解码端必然失败，
	// 注册时就拒绝。
	if t.Kind() == reflect.Interface && entry.strategy == strategyGeneric {
		return merr.WrapErrConfiguration(typeID, "interface type requires a custom codec")
	}

	if existing, ok := c.byID[typeID]; ok && existing.goType != t {
		return merr.WrapErrConfiguration(typeID, "id already bound to "+existing.goType.String())
	}

	// 同一类型换 id 重注册时，回收旧 id 相关状态。
	if old, ok := c.entries[t]; ok && old.typeID != typeID {
		delete(c.byID, old.typeID)
		c.opaqueIDs.Remove(old.typeID)
		c.ifaces = slices.DeleteFunc(c.ifaces, func(it reflect.Type) bool { return it == t })
	}

	c.entries[t] = entry
	c.byID[typeID] = entry

	if entry.strategy == strategyOpaque {
		c.opaqueIDs.Insert(typeID)
		// gob 通过接口槽编码需要提前知道具体类型。
		if t.Kind() != reflect.Interface {
			blob.Register(reflect.New(t).Elem().Interface())
		}
	} else {
		c.opaqueIDs.Remove(typeID)
	}

	if t.Kind() == reflect.Interface && !slices.Contains(c.ifaces, t) {
		c.ifaces = append(c.ifaces, t)
	}

	c.Logger().Debug("type registered",
		log.FieldTypeID(typeID),
		zap.String("goType", t.String()),
		zap.String("strategy", entry.strategy.String()))
	return nil
}

// Clone 返回一个独立的注册表副本。
// 副本的后续注册不会影响原上下文；编解码器闭包按引用共享
// （假定其为无副作用的纯函数）。
func (c *SerializationContext) Clone() *SerializationContext {
	clone := &SerializationContext{
		entries:      maps.Clone(c.entries),
		byID:         maps.Clone(c.byID),
		opaqueIDs:    c.opaqueIDs.Clone(),
		ifaces:       slices.Clone(c.ifaces),
		blobEncode:   c.blobEncode,
		blobDecode:   c.blobDecode,
		payloadCodec: c.payloadCodec,
	}
	return clone
}

// SetDefaultBlobCodec 替换 opaque 策略使用的兜底编解码器。
func (c *SerializationContext) SetDefaultBlobCodec(enc blob.Encoder, dec blob.Decoder) error {
	if enc == nil || dec == nil {
		return merr.WrapErrConfiguration("", "blob codec requires both encoder and decoder")
	}
	c.blobEncode = enc
	c.blobDecode = dec
	c.Logger().Debug("default blob codec replaced")
	return nil
}

// SetPayloadCodec 替换文档树编码器。
// 信封头部会记录编码器 ID，反序列化端不依赖本设置。
func (c *SerializationContext) SetPayloadCodec(codec payload.Codec) {
	c.payloadCodec = codec
}

// RegisteredTypeIDs 返回当前所有注册的 type id 快照，仅用于诊断。
func (c *SerializationContext) RegisteredTypeIDs() []string {
	ids := maps.Keys(c.byID)
	slices.Sort(ids)
	return ids
}

var defaultContext atomic.Pointer[SerializationContext]

func init() {
	defaultContext.Store(NewContext())
}

// DefaultContext 返回进程级默认注册表。
// 默认实例只是调用侧的便利：所有操作都接受显式的上下文参数。
func DefaultContext() *SerializationContext {
	return defaultContext.Load()
}

// ReplaceDefaultContext 原子地替换进程级默认注册表。
func ReplaceDefaultContext(ctx *SerializationContext) {
	defaultContext.Store(ctx)
}

func resolveContext(ctx *SerializationContext) *SerializationContext {
	if ctx == nil {
		return DefaultContext()
	}
	return ctx
}
