package enum

import (
	"errors"
	"fmt"
)

// ErrUnknownEnumValue indicates a wire or database value that maps to no enum constant.
var ErrUnknownEnumValue = errors.New("unknown enum value")

// reverse builds a name-to-value lookup from a value-to-name table.
func reverse[T comparable](names map[T]string) map[string]T {
	out := make(map[string]T, len(names))
	for v, name := range names {
		out[name] = v
	}

	return out
}

// scanEnum implements sql.Scanner for string-stored enums.
func scanEnum[T any](src any, dst *T, parse func(string) (T, error)) error {
	var raw string

	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case nil:
		return nil
	default:
		return fmt.Errorf("%w: unsupported scan type %T", ErrUnknownEnumValue, src)
	}

	parsed, err := parse(raw)
	if err != nil {
		return err
	}

	*dst = parsed

	return nil
}
