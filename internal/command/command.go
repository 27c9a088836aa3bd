// Package command splits transcribed text into dictated prose and spoken
// editing commands.
package command

// ID identifies a recognized voice command.
type ID string

const (
	NewLine      ID = "newline"
	NewParagraph ID = "new_paragraph"
	Tab          ID = "tab"
	SelectAll    ID = "select_all"
	Undo         ID = "undo"
	Redo         ID = "redo"
	Copy         ID = "copy"
	Cut          ID = "cut"
	Paste        ID = "paste"
	Delete       ID = "delete"
)

// Builtins maps spoken phrases to command identifiers. Caller-supplied
// overrides take precedence on key collision.
func Builtins() map[string]ID {
	return map[string]ID{
		"new line":      NewLine,
		"new paragraph": NewParagraph,
		"tab key":       Tab,
		"select all":    SelectAll,
		"undo":          Undo,
		"redo":          Redo,
		"copy":          Copy,
		"cut":           Cut,
		"paste":         Paste,
		"delete":        Delete,
	}
}

// Segment is one unit of parsed transcription output: either literal text
// or a recognized command. Command is empty for text segments.
type Segment struct {
	Text    string
	Command ID
}

// IsCommand reports whether the segment is a command rather than text.
func (s Segment) IsCommand() bool {
	return s.Command != ""
}

// TextSegment builds a text segment.
func TextSegment(text string) Segment {
	return Segment{Text: text}
}

// CommandSegment builds a command segment.
func CommandSegment(id ID) Segment {
	return Segment{Command: id}
}
