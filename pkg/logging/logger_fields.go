package logging

import (
	"time"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Uint64(key string, value uint64) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Component field helpers for container logging
func Component(name string) Field {
	return String("component", name)
}

func Path(p string) Field {
	return String("path", p)
}

// Format names the on-disk variant ("simple" or "bunch").
func Format(name string) Field {
	return String("format", name)
}

func Records(n uint64) Field {
	return Uint64("records", n)
}

// Bunch is a bunch sequence number.
func Bunch(seq uint32) Field {
	return Uint64("bunch", uint64(seq))
}

func Offset(off int64) Field {
	return Int64("offset", off)
}

func Bytes(n int64) Field {
	return Int64("bytes", n)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}
