package pool

// Finding is a single reported defect in a question pool document.
//
// Line is the 1-based physical line number in the source text; blank lines
// never carry findings but still count toward the numbering. Field is the
// 1-based index of the offending field within its row, with 0 reserved for
// findings against the row as a whole.
type Finding struct {
	Line    int    `json:"line"`
	Field   int    `json:"field"`
	Message string `json:"error"`
}
