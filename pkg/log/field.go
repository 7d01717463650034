package log

import "time"

// Field is a single structured key/value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// F builds a Field from an arbitrary value.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Str builds a string-valued Field.
func Str(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int builds an int-valued Field.
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Int64 builds an int64-valued Field.
func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

// Bool builds a bool-valued Field.
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Duration builds a Field whose value is a time.Duration.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Err builds a Field named "error" carrying err. A nil err is carried as-is
// so callers can unconditionally attach it.
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// Component builds a Field tagging the log entry with a component name,
// using the same key WithComponent writes.
func Component(name string) Field {
	return Field{Key: ComponentKey, Value: name}
}
