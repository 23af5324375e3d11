package logger

import "sync"

// named holds loggers registered by component name, so packages can pick
// up a configured logger without it being threaded through constructors.
var named = struct {
	sync.RWMutex
	loggers map[string]*Logger
}{loggers: make(map[string]*Logger)}

// Register stores l under name, replacing any earlier registration.
func Register(name string, l *Logger) {
	named.Lock()
	defer named.Unlock()
	named.loggers[name] = l
}

// RegisterComponents registers base tagged with each component name, so
// that Get(name) returns a logger sharing base's level and output.
func RegisterComponents(base *Logger, names ...string) {
	named.Lock()
	defer named.Unlock()
	for _, name := range names {
		named.loggers[name] = base.WithComponent(name)
	}
}

// Get returns the logger registered under name. Unregistered names fall
// back to the global logger tagged with name.
func Get(name string) *Logger {
	named.RLock()
	l, ok := named.loggers[name]
	named.RUnlock()
	if ok {
		return l
	}
	return GetGlobalLogger().WithComponent(name)
}
