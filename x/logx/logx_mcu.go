//go:build tinygo

package logx

// printLogger writes "[name] LEVEL msg k=v ..." through the builtin println,
// which avoids pulling fmt and zap onto the MCU.
type printLogger struct{ name string }

func New(name string) Logger { return printLogger{name: name} }

func (p printLogger) emit(level, msg string, kv []interface{}) {
	print("[", p.name, "] ", level, " ", msg)
	for i := 0; i+1 < len(kv); i += 2 {
		k, _ := kv[i].(string)
		print(" ", k, "=")
		switch v := kv[i+1].(type) {
		case string:
			print(v)
		case int:
			print(v)
		case bool:
			print(v)
		case error:
			print(v.Error())
		default:
			print("?")
		}
	}
	println()
}

func (p printLogger) Debugw(msg string, kv ...interface{}) { p.emit("DEBUG", msg, kv) }
func (p printLogger) Infow(msg string, kv ...interface{})  { p.emit("INFO", msg, kv) }
func (p printLogger) Warnw(msg string, kv ...interface{})  { p.emit("WARN", msg, kv) }
func (p printLogger) Errorw(msg string, kv ...interface{}) { p.emit("ERROR", msg, kv) }
