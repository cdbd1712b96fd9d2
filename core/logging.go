package core

// Logger is the application-wide structured logger contract.
// Implementations may forward to an error-tracking backend; args may
// include an acting user, an error or arbitrary context values.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
