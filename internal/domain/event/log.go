package event

// LogType distinguishes visible text from spacing.
type LogType string

// Log entry types.
const (
	LogNormal LogType = "NORMAL"
	LogGap    LogType = "GAP"
)

// LogEntry is one unit appended to the battle log.
//
// A visible entry extends the last paragraph unless NewParagraph is set or
// buffered entries are waiting, in which case the buffered entries and then
// the entry each open a paragraph. A Buffer entry is held until the next
// visible entry. An entry carrying JoinOperator only sets the separator put
// before the next extension of the last paragraph.
type LogEntry struct {
	Type         LogType
	Content      string
	NewParagraph bool
	Buffer       bool
	JoinOperator string
}
