package generic

// Unwrap returns value, or panics if err is not nil.
func Unwrap[T any](value T, err error) T {
	if err != nil {
		panic(err)
	}
	return value
}

// Unwrap_ is like Unwrap, but for return values that are just an error.
func Unwrap_(err error) {
	Unwrap(NewVoid(), err)
}
