// Package logx is the logging surface shared by services and commands.
// Host builds log through golog (zap); TinyGo builds fall back to println.
package logx

// Logger is the key/value logging subset used across the module.
// *zap.SugaredLogger (and therefore golog.Logger) satisfies it.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) Debugw(string, ...interface{}) {}
func (Nop) Infow(string, ...interface{})  {}
func (Nop) Warnw(string, ...interface{})  {}
func (Nop) Errorw(string, ...interface{}) {}

// OrNop returns l, or a Nop logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop{}
	}
	return l
}
