package volume

import (
	"errors"
	"fmt"
)

// Kind classifies why a bake failed.
type Kind uint8

// Failure kinds.
const (
	KindConfiguration Kind = iota + 1 // invalid resolution, shape or falloff
	KindAllocation                    // a volume or layer buffer could not be allocated
	KindIndexing                      // layer count, extent or packed index invariant broken
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindAllocation:
		return "allocation"
	case KindIndexing:
		return "indexing invariant"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Sentinels matched by errors.Is against any *BakeError of the same kind.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrAllocation    = errors.New("allocation error")
	ErrIndexing      = errors.New("indexing invariant error")
)

// BakeError is the typed failure returned by every stage of a bake.
type BakeError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *BakeError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *BakeError) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *BakeError) Is(target error) bool {
	switch target {
	case ErrConfiguration:
		return e.Kind == KindConfiguration
	case ErrAllocation:
		return e.Kind == KindAllocation
	case ErrIndexing:
		return e.Kind == KindIndexing
	}
	return false
}

// ConfigError builds a KindConfiguration error.
func ConfigError(op, format string, args ...any) error {
	return &BakeError{Kind: KindConfiguration, Op: op, Err: fmt.Errorf(format, args...)}
}

// IndexError builds a KindIndexing error.
func IndexError(op, format string, args ...any) error {
	return &BakeError{Kind: KindIndexing, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first *BakeError in err's chain, or 0.
func KindOf(err error) Kind {
	var be *BakeError
	if errors.As(err, &be) {
		return be.Kind
	}
	return 0
}
