package casredis

// Fields is a minimal structured field map for logs.
type Fields map[string]any

// Logger is a tiny leveled logger. Provide an adapter around your logging stack
// (see log/zap, log/logrus, log/slog). If Logger is nil in Options, logging is disabled.
//
// What the client logs, by level:
//
//	Debug  negative TTL turned into a delete; FLUSHDB refused, node scanned instead
//	Info   CAS scripts loaded on N primaries; CAS scripts reset by ResetScripts (reason=manual)
//	Warn   cached value failed to decode and was served as a miss (key, type, err);
//	       a node failed to flush (addr, method, removed, err);
//	       CAS scripts vanished from the server (NOSCRIPT) and are reloading
//
// Keys are logged unprefixed. Nothing is logged at Error: every failure is
// also returned to the caller.
type Logger interface {
	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, f Fields)
}

// NopLogger drops everything.
type NopLogger struct{}

func (NopLogger) Debug(string, Fields) {}
func (NopLogger) Info(string, Fields)  {}
func (NopLogger) Warn(string, Fields)  {}
func (NopLogger) Error(string, Fields) {}
