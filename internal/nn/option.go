package nn

// Option holds a value that is either unset or set.
//
// Layers use it for state that only exists after a lifecycle step: lazily
// materialized parameters and the binding produced by Configure.
type Option[T any] struct {
	value T
	set   bool
}

// Some returns a set option holding v.
func Some[T any](v T) Option[T] {
	return Option[T]{value: v, set: true}
}

// None returns an unset option.
func None[T any]() Option[T] {
	return Option[T]{}
}

// IsSet reports whether the option holds a value.
func (o Option[T]) IsSet() bool {
	return o.set
}

// Get returns the value and whether it is set.
func (o Option[T]) Get() (T, bool) {
	return o.value, o.set
}

// MustGet returns the value. Panics if the option is unset.
func (o Option[T]) MustGet() T {
	if !o.set {
		panic("nn: option is not set")
	}
	return o.value
}
