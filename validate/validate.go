// Package validate provides a thin adaptor that forces callers to run an
// explicit post-deserialization validation step before a decoded value is
// trusted.
package validate

import "errors"

// ErrAlreadyConsumed is returned when Validate is called more than once on
// the same Unsafe wrapper.
var ErrAlreadyConsumed = errors.New("validate: value already validated")

// Validatable is implemented by types whose correctness cannot be checked
// until after decoding, such as a signed delegation chain.
type Validatable[C any] interface {
	Validate(ctx C) error
}

// Unsafe carries a decoded value that has not yet been validated. Its only
// exit is Validate, which runs T.Validate and yields the inner value on
// success. Go has no affine types, so the "only constructor of the trusted
// type is the result of validation" pattern from spec §9 is enforced here
// with a runtime-checked one-shot consumption flag instead of the type
// system: calling Validate twice on the same wrapper is an error, not a
// silent reuse of a value nobody re-checked.
type Unsafe[T Validatable[C], C any] struct {
	value    T
	consumed bool
}

// New wraps value as not-yet-validated.
func New[T Validatable[C], C any](value T) *Unsafe[T, C] {
	return &Unsafe[T, C]{value: value}
}

// Validate runs value.Validate(ctx) and, on success, returns the inner
// value. It can only be called once per Unsafe; subsequent calls return
// ErrAlreadyConsumed without re-running validation.
func (u *Unsafe[T, C]) Validate(ctx C) (T, error) {
	var zero T
	if u.consumed {
		return zero, ErrAlreadyConsumed
	}
	u.consumed = true
	if err := u.value.Validate(ctx); err != nil {
		return zero, err
	}
	return u.value, nil
}
