package types

// UserIdentity identifies one participant of a room session.
//
// The id is supplied externally at join time and is stable for the lifetime
// of the room. Ids are normalized to their string form at the transport
// ingress boundary, so equality checks throughout the library are plain
// string comparisons.
type UserIdentity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// CursorPosition is a caret location inside the shared document.
//
// Lines and columns are 1-based, matching common editor conventions.
type CursorPosition struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// SelectionRange is a text selection inside the shared document.
//
// A selection is always non-empty; an empty local selection is signalled as
// an explicit selection-cleared event instead.
type SelectionRange struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn"`
	EndLine     int `json:"endLine"`
	EndColumn   int `json:"endColumn"`
}

// Color is a CSS color value ("#E53E3E" or "hsl(210, 80%, 50%)") assigned to
// a user for cursor, selection and avatar rendering.
type Color string
