package util

import "fmt"

// LogError logs err at error level with a context string naming the
// operation and its target. It returns err unchanged so call sites can
// log and return in one statement.
func LogError(context string, err error) error {
	if err == nil {
		return nil
	}
	ErrorLog("%s: %v", context, err)
	return err
}

// SafeValue runs fn and returns its result. Any error or panic is logged
// with the given context and fallback is returned instead.
func SafeValue[T any](context string, fallback T, fn func() (T, error)) (result T) {
	defer func() {
		if r := recover(); r != nil {
			LogError(context, fmt.Errorf("panic: %v", r))
			result = fallback
		}
	}()

	v, err := fn()
	if err != nil {
		LogError(context, err)
		return fallback
	}
	return v
}

// Safe runs fn and reports whether it succeeded. Failures are logged
// with the given context and never propagate.
func Safe(context string, fn func() error) bool {
	return SafeValue(context, false, func() (bool, error) {
		if err := fn(); err != nil {
			return false, err
		}
		return true, nil
	})
}
