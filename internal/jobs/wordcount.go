// Package jobs holds ready-made map and reduce functions for the engine.
package jobs

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"LocalMR/internal/types"
)

// WordCountMap emits (word, 1) for every word in the document. Words are
// maximal runs of letters and digits.
func WordCountMap(in types.InputPair[string, string]) ([]types.MapOutputPair[string, int], error) {
	words := strings.FieldsFunc(in.Value, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	out := make([]types.MapOutputPair[string, int], 0, len(words))
	for _, w := range words {
		out = append(out, types.MapOutputPair[string, int]{Key: w, Value: 1})
	}
	return out, nil
}

// SumReduce adds up every value in the group.
func SumReduce(group types.GroupedPair[string, int]) (types.ResultPair[string, int], error) {
	total := 0
	for _, v := range group.Values {
		total += v
	}
	return types.ResultPair[string, int]{Key: group.Key, Value: total}, nil
}

// Identity passes the input pair through unchanged.
func Identity[K comparable, V any](in types.InputPair[K, V]) ([]types.MapOutputPair[K, V], error) {
	return []types.MapOutputPair[K, V]{{Key: in.Key, Value: in.Value}}, nil
}

// SumLinesMap parses "key value" lines and emits (key, value). Blank lines
// and lines starting with '#' are ignored.
func SumLinesMap(in types.InputPair[string, string]) ([]types.MapOutputPair[string, int], error) {
	var out []types.MapOutputPair[string, int]

	for n, line := range strings.Split(in.Value, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%s:%d: expected \"key value\", got %q", in.Key, n+1, line)
		}

		v, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", in.Key, n+1, err)
		}
		out = append(out, types.MapOutputPair[string, int]{Key: fields[0], Value: v})
	}

	return out, nil
}
