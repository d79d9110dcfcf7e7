package types

// InputPair is one caller-supplied key/value fed to a map task.
type InputPair[K, V any] struct {
	Key   K
	Value V
}

// MapOutputPair is the intermediate key-value pair produced by mappers.
type MapOutputPair[K comparable, V any] struct {
	Key   K
	Value V
}

// GroupedPair holds every value emitted under Key across all map tasks.
// The order of Values is not significant.
type GroupedPair[K comparable, V any] struct {
	Key    K
	Values []V
}

// ResultPair is the output of one reduce task.
type ResultPair[K, V any] struct {
	Key   K
	Value V
}

// Phase identifies a stage of the pipeline.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseMap     Phase = "map"
	PhaseShuffle Phase = "shuffle"
	PhaseReduce  Phase = "reduce"
)
