package core

// Logger is the app-wide leveled logger. Implementations may also report
// errors to an external crash tracker; extra args are forwarded as-is.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
