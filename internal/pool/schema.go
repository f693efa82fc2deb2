package pool

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/quizpool/checker/internal/csv"
)

// Answer columns follow a fixed naming convention: choice<N> holds the text
// of an answer option and correct<N> flags whether it is a right answer.
var (
	choicePattern  = regexp.MustCompile(`(?i)^choice(\d+)$`)
	correctPattern = regexp.MustCompile(`(?i)^correct(\d+)$`)
)

// columnPair holds the header positions (1-based) of a choice<N>/correct<N>
// pair sharing the suffix N. Zero means the column is absent from the header.
type columnPair struct {
	choice  int
	correct int
}

// schema is derived from the first non-blank line of a document and held
// read-only for the rest of the validation pass.
type schema struct {
	names      []string
	fieldCount int

	pairs      map[int]columnPair
	suffixes   []int // sorted, for deterministic rule order
	hasCorrect bool
}

func newSchema(header []string) *schema {
	s := &schema{
		names:      header,
		fieldCount: len(header),
		pairs:      make(map[int]columnPair),
	}

	for i, name := range header {
		name = strings.TrimSpace(name)
		if m := choicePattern.FindStringSubmatch(name); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			p := s.pairs[n]
			p.choice = i + 1
			s.pairs[n] = p
		} else if m := correctPattern.FindStringSubmatch(name); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			p := s.pairs[n]
			p.correct = i + 1
			s.pairs[n] = p
			s.hasCorrect = true
		}
	}

	s.suffixes = make([]int, 0, len(s.pairs))
	for n := range s.pairs {
		s.suffixes = append(s.suffixes, n)
	}
	sort.Ints(s.suffixes)

	return s
}

// fieldName names a field for error text, falling back to a positional
// placeholder for indexes outside the header.
func (s *schema) fieldName(idx int) string {
	return csv.FieldName(s.names, idx)
}
