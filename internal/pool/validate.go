// Package pool validates question pool documents.
//
// A question pool is a CSV-like text file with one question per row. The
// header names the columns; answer options live in choice<N> columns and
// their correctness flags in the matching correct<N> columns. Validation
// walks every line, layering schema, content, and answer-pairing rules on
// top of the tokenizer's output, and reports every defect found rather than
// stopping at the first. Malformed input is the expected case: validation
// never fails, it only accumulates findings.
package pool

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/quizpool/checker/internal/csv"
)

// MaxFieldLength is the longest permitted field value, in characters.
const MaxFieldLength = 1000

// mustQuoteChars are the characters an unquoted field may not contain.
const mustQuoteChars = ",\"\r\n"

var quoteRuns = regexp.MustCompile(`"+`)

// Validate checks a whole document and returns every finding, ordered by
// ascending line number and, within a line, by rule order. Lines may be
// separated by \n or \r\n. An empty result means the document is clean.
func Validate(doc string) []Finding {
	v := NewValidator()
	for _, line := range strings.Split(doc, "\n") {
		v.AddLine(strings.TrimSuffix(line, "\r"))
	}
	return v.Finish()
}

// Validator is the incremental form of Validate: feed physical lines one at
// a time with AddLine and collect the findings with Finish. Each Validator
// handles a single document; the header schema is established by the first
// non-blank line and never recomputed.
type Validator struct {
	lineNo   int
	schema   *schema
	findings []Finding
}

// NewValidator returns a Validator ready for the first line of a document.
func NewValidator() *Validator {
	return &Validator{}
}

// AddLine feeds the next physical line, without its terminator. Blank lines
// keep their line number but are neither tokenized nor validated.
func (v *Validator) AddLine(text string) {
	v.lineNo++
	if strings.TrimSpace(text) == "" {
		return
	}

	var headerNames []string
	if v.schema != nil {
		headerNames = v.schema.names
	}
	line := csv.ScanLine(text, headerNames)

	isHeader := v.schema == nil
	if isHeader {
		v.schema = newSchema(line.Fields)
		v.checkUnpairedColumns()
	} else {
		v.checkFieldCount(line)
	}

	v.checkFieldContent(line)

	if !isHeader {
		v.checkAnswers(line)
	}

	// Tokenizer-reported parse errors come last for the line.
	for _, fe := range line.Errors {
		v.report(fe.Field, fe.Message)
	}
}

// Finish returns the accumulated findings. The Validator must not be reused
// afterwards.
func (v *Validator) Finish() []Finding {
	return v.findings
}

func (v *Validator) report(field int, message string) {
	v.findings = append(v.findings, Finding{Line: v.lineNo, Field: field, Message: message})
}

// checkUnpairedColumns flags header columns whose choice/correct counterpart
// is missing. Row-level pairing checks later run only for complete pairs.
func (v *Validator) checkUnpairedColumns() {
	for _, n := range v.schema.suffixes {
		p := v.schema.pairs[n]
		if p.choice != 0 && p.correct == 0 {
			v.report(p.choice, fmt.Sprintf("%s has no matching correct%d column", v.schema.fieldName(p.choice), n))
		}
		if p.correct != 0 && p.choice == 0 {
			v.report(p.correct, fmt.Sprintf("%s has no matching choice%d column", v.schema.fieldName(p.correct), n))
		}
	}
}

func (v *Validator) checkFieldCount(line csv.Line) {
	if len(line.Fields) != v.schema.fieldCount {
		v.report(0, fmt.Sprintf("expected %d fields, found %d", v.schema.fieldCount, len(line.Fields)))
	}
}

// checkFieldContent applies the per-field content rules to every field of
// every row, the header included.
func (v *Validator) checkFieldContent(line csv.Line) {
	for i, value := range line.Fields {
		idx := i + 1
		name := v.schema.fieldName(idx)

		if !line.Quoted[i] && strings.ContainsAny(value, mustQuoteChars) {
			v.report(idx, fmt.Sprintf("%s must be quoted", name))
		}

		if line.Quoted[i] && hasOddQuoteRun(line.Raw[i]) {
			v.report(idx, fmt.Sprintf("%s contains improperly escaped double quotes", name))
		}

		if n := utf8.RuneCountInString(value); n > MaxFieldLength {
			v.report(idx, fmt.Sprintf("%s is %d characters long, exceeding the maximum of %d", name, n, MaxFieldLength))
		}
	}
}

// checkAnswers applies the correctness-flag and choice/correct pairing rules
// to a data row.
//
// The pairing rule reports against the missing field's index but names both
// columns, so the message reads as an instruction ("correct1 must not be
// empty when choice1 is not empty"). A row whose answers are incomplete in
// that sense is not additionally reported for having no TRUE flag; the
// at-least-one-TRUE rule applies once the row's pairs are self-consistent.
func (v *Validator) checkAnswers(line csv.Line) {
	if !v.schema.hasCorrect {
		return
	}

	sawTrue := false
	for _, n := range v.schema.suffixes {
		p := v.schema.pairs[n]
		if p.correct == 0 {
			continue
		}
		switch strings.ToUpper(strings.TrimSpace(fieldAt(line, p.correct))) {
		case "", "FALSE":
		case "TRUE":
			sawTrue = true
		default:
			v.report(p.correct, fmt.Sprintf("%s must be TRUE, FALSE, or blank", v.schema.fieldName(p.correct)))
		}
	}

	var pairFindings []Finding
	for _, n := range v.schema.suffixes {
		p := v.schema.pairs[n]
		if p.choice == 0 || p.correct == 0 {
			continue
		}
		choiceVal := strings.TrimSpace(fieldAt(line, p.choice))
		correctVal := strings.TrimSpace(fieldAt(line, p.correct))
		if choiceVal != "" && correctVal == "" {
			pairFindings = append(pairFindings, Finding{
				Line:  v.lineNo,
				Field: p.correct,
				Message: fmt.Sprintf("%s must not be empty when %s is not empty",
					v.schema.fieldName(p.correct), v.schema.fieldName(p.choice)),
			})
		}
		if correctVal != "" && choiceVal == "" {
			pairFindings = append(pairFindings, Finding{
				Line:  v.lineNo,
				Field: p.choice,
				Message: fmt.Sprintf("%s must not be empty when %s is not empty",
					v.schema.fieldName(p.choice), v.schema.fieldName(p.correct)),
			})
		}
	}

	if !sawTrue && len(pairFindings) == 0 {
		v.report(0, "at least one correct field must be TRUE")
	}
	v.findings = append(v.findings, pairFindings...)
}

// fieldAt returns the value of the 1-based field idx, or "" when the row is
// shorter than the header.
func fieldAt(line csv.Line, idx int) string {
	if idx >= 1 && idx <= len(line.Fields) {
		return line.Fields[idx-1]
	}
	return ""
}

// hasOddQuoteRun reports whether the raw text of a quoted field contains a
// run of double quotes of odd length between its surrounding quotes. In a
// properly escaped field every interior run is even.
func hasOddQuoteRun(raw string) bool {
	inner := strings.TrimPrefix(raw, `"`)
	inner = strings.TrimSuffix(inner, `"`)
	for _, run := range quoteRuns.FindAllString(inner, -1) {
		if len(run)%2 == 1 {
			return true
		}
	}
	return false
}
