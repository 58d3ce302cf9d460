// Package optimistic implements a compare-and-retry mutation primitive for
// single records shared by concurrent writers. A caller supplies a pure
// transform; the primitive reads the current value, applies the transform and
// commits conditionally on the record being unchanged since the read,
// retrying on conflict up to a bounded number of attempts.
package optimistic

import "errors"

// ErrExhausted is returned after the retry budget is spent without a
// successful commit. Re-issuing the user action is safe.
var ErrExhausted = errors.New("optimistic: retry attempts exhausted")

// DefaultMaxAttempts bounds the read-transform-commit loop.
const DefaultMaxAttempts = 10

// Store is one addressable record type with versioned conditional writes.
// Load reports found=false when the record does not exist. Commit succeeds
// only if the stored version still equals expectedVersion; a conflict returns
// committed=false with a nil error.
//
// Load must hand back a value the transform may mutate freely, so
// implementations return copies, not shared references.
type Store[T any] interface {
	Load(id uint) (value T, version int, found bool, err error)
	Commit(id uint, value T, expectedVersion int) (committed bool, err error)
}

// Transform maps the current value to the next one. found is false when the
// record vanished; the transform must then decline (return ok=false) rather
// than fabricate a record. It may run several times per Mutate call and so
// must be side-effect-free apart from its return values.
type Transform[T any] func(current T, found bool) (next T, ok bool)

// Mutate applies transform to the record at id under concurrent writers
// without lost updates. It returns the committed value and applied=true on
// success, applied=false when the transform declined or the record was gone,
// and ErrExhausted once maxAttempts conflicts occurred.
func Mutate[T any](store Store[T], id uint, transform Transform[T], maxAttempts int) (T, bool, error) {
	var zero T
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		current, version, found, err := store.Load(id)
		if err != nil {
			return zero, false, err
		}

		next, ok := transform(current, found)
		if !ok || !found {
			return zero, false, nil
		}

		committed, err := store.Commit(id, next, version)
		if err != nil {
			return zero, false, err
		}
		if committed {
			return next, true, nil
		}
	}

	return zero, false, ErrExhausted
}
