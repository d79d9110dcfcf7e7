package jobs

import (
	"bufio"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"LocalMR/internal/types"
)

// Grep finds lines matching a pattern across documents.
type Grep struct {
	regex *regexp.Regexp
}

// NewGrep compiles pattern.
func NewGrep(pattern string) (*Grep, error) {
	regex, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern: %w", err)
	}

	return &Grep{regex: regex}, nil
}

// Map emits (line, document) for every matching line of the document.
func (g *Grep) Map(in types.InputPair[string, string]) ([]types.MapOutputPair[string, string], error) {
	var results []types.MapOutputPair[string, string]

	scanner := bufio.NewScanner(strings.NewReader(in.Value))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if g.regex.MatchString(line) {
			results = append(results, types.MapOutputPair[string, string]{
				Key:   line,
				Value: in.Key,
			})
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", in.Key, err)
	}

	return results, nil
}

// Reduce combines all occurrences of a matched line into
// "line -> [doc1, doc2]" with documents listed once, in sorted order.
func (g *Grep) Reduce(group types.GroupedPair[string, string]) (types.ResultPair[string, string], error) {
	docs := append([]string(nil), group.Values...)
	sort.Strings(docs)

	unique := docs[:0]
	for i, d := range docs {
		if i == 0 || d != docs[i-1] {
			unique = append(unique, d)
		}
	}

	return types.ResultPair[string, string]{
		Key:   group.Key,
		Value: fmt.Sprintf("%s -> [%s]", group.Key, strings.Join(unique, ", ")),
	}, nil
}
