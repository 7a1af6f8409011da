package errors

import (
	"context"
	goerrors "errors"
	"reflect"
	"strings"
)

// Classify returns a normalized error class name suitable for tagging
// metrics/logs. Context errors collapse to stable names; everything else
// unwraps to the innermost concrete type converted to snake_case-ish, which
// keeps typed sentinels distinguishable without unbounded tag cardinality.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case goerrors.Is(err, context.DeadlineExceeded):
		return "deadline_exceeded"
	case goerrors.Is(err, context.Canceled):
		return "canceled"
	}

	// Unwrap to the innermost error for better signal. Multi-wrapped errors
	// descend into the last branch: the sentinel-first wrapping convention
	// keeps the concrete cause there.
	for {
		if u, ok := err.(interface{ Unwrap() []error }); ok {
			branches := u.Unwrap()
			if len(branches) == 0 {
				break
			}
			err = branches[len(branches)-1]
			continue
		}
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
