package log

import "go.uber.org/atomic"

var (
	_ WithLogger   = &Binder{}
	_ LoggerBinder = &Binder{}
)

// WithLogger 提供对组件本地 Logger 的只读访问。
type WithLogger interface {
	Logger() *MLogger
}

// LoggerBinder 提供把 Logger 绑定到组件上的能力。
type LoggerBinder interface {
	SetLogger(logger *MLogger)
}

// Binder 以内嵌方式给长生命周期组件（如序列化上下文）挂一个
// 可替换的本地 Logger：调用方按实例注入，不注入则落到全局。
type Binder struct {
	logger atomic.Pointer[MLogger]
}

// SetLogger 绑定本地 Logger，可在运行期原子替换。
func (w *Binder) SetLogger(logger *MLogger) {
	w.logger.Store(logger)
}

// Logger 返回绑定的本地 Logger，未绑定时退回全局 Logger。
func (w *Binder) Logger() *MLogger {
	l := w.logger.Load()
	if l == nil {
		return With()
	}
	return l
}
