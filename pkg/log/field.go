package log

import "time"

// Field represents a structured log field with a key and value
type Field struct {
	Key   string
	Value interface{}
}

// F creates a log field with the provided key and value
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Err creates an error field
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Str creates a string field
func Str(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Strs creates a string slice field
func Strs(key string, value []string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an integer field
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a boolean field
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Duration creates a duration field
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Any creates a field for any value (alias for F)
func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Component creates a component field
func Component(value string) Field {
	return Field{Key: ComponentKey, Value: value}
}

// Category creates an artifact category field
func Category(value string) Field {
	return Field{Key: CategoryKey, Value: value}
}

// Step creates a teardown step field
func Step(value string) Field {
	return Field{Key: StepKey, Value: value}
}

// Region creates a region field
func Region(value string) Field {
	return Field{Key: RegionKey, Value: value}
}

// Deployment creates a deployment field
func Deployment(value string) Field {
	return Field{Key: DeploymentKey, Value: value}
}

// RunID creates a run identifier field
func RunID(value string) Field {
	return Field{Key: RunIDKey, Value: value}
}
