package serde

import (
	"reflect"
)

// 分发算法：为运行期类型 T 选择注册条目。
//
// Go 没有类继承，这里用两级显式线性化代替祖先链查找：
//  1. T 自身（指针统一去引用）；
//  2. T 的匿名内嵌字段，按字段声明顺序深度优先——
//     这是 Go 中“最派生优先”的组合链；
//  3. 已注册的接口类型，按注册先后顺序取第一个 T 实现的。
//
// 未命中时返回 nil，由调用方决定报 UnknownType 还是透传。
func (c *SerializationContext) lookup(t reflect.Type) *typeEntry {
	if t == nil {
		return nil
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if entry, ok := c.entries[t]; ok {
		return entry
	}

	if entry := c.lookupEmbedded(t, map[reflect.Type]struct{}{t: {}}); entry != nil {
		return entry
	}

	for _, iface := range c.ifaces {
		if t.Implements(iface) || reflect.PointerTo(t).Implements(iface) {
			return c.entries[iface]
		}
	}
	return nil
}

// lookupEmbedded 沿匿名内嵌字段做深度优先查找。
// seen 防御菱形内嵌导致的重复访问。
func (c *SerializationContext) lookupEmbedded(t reflect.Type, seen map[reflect.Type]struct{}) *typeEntry {
	if t.Kind() != reflect.Struct {
		return nil
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.Anonymous {
			continue
		}
		ft := field.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if _, ok := seen[ft]; ok {
			continue
		}
		seen[ft] = struct{}{}

		if entry, ok := c.entries[ft]; ok {
			return entry
		}
		if entry := c.lookupEmbedded(ft, seen); entry != nil {
			return entry
		}
	}
	return nil
}

// lookupID 是反向映射查找：type id -> 注册条目。
func (c *SerializationContext) lookupID(typeID string) *typeEntry {
	return c.byID[typeID]
}
