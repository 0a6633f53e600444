package slides

// Optional holds a value that is either absent or present. The zero value is absent.
type Optional[T interface{}] struct {
	value   T
	present bool
}

// Some returns a present Optional holding v.
func Some[T interface{}](v T) Optional[T] {
	return Optional[T]{value: v, present: true}
}

// None returns an absent Optional.
func None[T interface{}]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.present
}

// IsPresent reports whether a value is held.
func (o Optional[T]) IsPresent() bool {
	return o.present
}

// OrElse returns the held value, or def when absent.
func (o Optional[T]) OrElse(def T) T {
	if o.present {
		return o.value
	}
	return def
}

// ptr returns a pointer to the held value, or nil when absent. Used for JSON encoding.
func (o Optional[T]) ptr() *T {
	if !o.present {
		return nil
	}
	v := o.value
	return &v
}
