package mapreduce

// Untyped is an Engine whose keys and values are all interface values.
// Intermediate keys must still be comparable at runtime; a run whose map
// function emits a slice or map key fails with ErrUnhashableKey.
type Untyped = Engine[any, any, any, any, any, any]

// NewUntyped creates an Untyped engine.
func NewUntyped(mapFn MapFunc[any, any, any, any], reduceFn ReduceFunc[any, any, any, any], cfg Config) (*Untyped, error) {
	return New(mapFn, reduceFn, cfg)
}
