// Package csv provides the field-level line tokenizer for question pool
// validation.
//
// Unlike encoding/csv, the tokenizer never rejects a line: malformed quoting
// is reported as soft errors alongside a best-effort parse, so every line
// always yields a complete set of fields for downstream rule checks.
package csv

import (
	"fmt"
	"strings"
)

// FieldError is a parse problem local to one field of a line.
type FieldError struct {
	Field   int    // 1-based field index
	Message string
}

// Line is the result of tokenizing one line of delimited text.
//
// Fields holds the quote-resolved values (surrounding quotes stripped,
// doubled quotes collapsed). Quoted and Raw run parallel to Fields: Quoted
// marks fields that were opened with a quote, and Raw preserves the exact
// source substring of each field, so joining Raw with commas reproduces the
// input line byte for byte.
type Line struct {
	Fields []string
	Quoted []bool
	Raw    []string
	Errors []FieldError
}

// ScanLine tokenizes a single line into comma-delimited fields.
//
// The scan is a single left-to-right pass. A double quote opens a quoted
// field only when it is the first character of an as-yet-empty field; inside
// a quoted field a doubled quote is an escaped literal and a single quote
// closes the region. A quote anywhere else is reported as an error and kept
// in the field value, and a line ending inside an open quote is reported
// against the final field. The returned field count always equals the number
// of unquoted commas plus one.
//
// header supplies column names for error text; it is nil when the line being
// scanned is the header itself, in which case fields are named positionally.
func ScanLine(line string, header []string) Line {
	var (
		out      Line
		buf      []byte
		inQuote  bool
		isQuoted bool
		rawStart int
	)

	endField := func(end int) {
		out.Fields = append(out.Fields, string(buf))
		out.Quoted = append(out.Quoted, isQuoted)
		out.Raw = append(out.Raw, line[rawStart:end])
		buf = buf[:0]
		isQuoted = false
	}

	fieldIdx := func() int { return len(out.Fields) + 1 }

	i := 0
	for i < len(line) {
		c := line[i]

		if inQuote {
			if c == '"' {
				if i+1 < len(line) && line[i+1] == '"' {
					// Escaped literal quote; consume both characters.
					buf = append(buf, '"')
					i += 2
					continue
				}
				inQuote = false
				i++
				continue
			}
			buf = append(buf, c)
			i++
			continue
		}

		switch c {
		case '"':
			if len(buf) == 0 && !isQuoted {
				inQuote = true
				isQuoted = true
				i++
				continue
			}
			out.Errors = append(out.Errors, FieldError{
				Field:   fieldIdx(),
				Message: fmt.Sprintf("unescaped quote in unquoted field %s", FieldName(header, fieldIdx())),
			})
			buf = append(buf, c)
			i++
		case ',':
			endField(i)
			i++
			rawStart = i
		default:
			buf = append(buf, c)
			i++
		}
	}

	if inQuote {
		out.Errors = append(out.Errors, FieldError{
			Field:   fieldIdx(),
			Message: fmt.Sprintf("unclosed quoted field %s", FieldName(header, fieldIdx())),
		})
	}

	// End of line is the sentinel that closes the final field.
	endField(len(line))

	return out
}

// FieldName returns a display name for a 1-based field index: the header
// value at that position when known and non-blank, otherwise a #<n>
// positional placeholder. Indexes beyond the header length always fall back
// to the placeholder, which covers both the header's own first pass and rows
// wider than the header.
func FieldName(header []string, idx int) string {
	if idx >= 1 && idx <= len(header) {
		if name := strings.TrimSpace(header[idx-1]); name != "" {
			return name
		}
	}
	return fmt.Sprintf("#%d", idx)
}
