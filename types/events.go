package types

// Origin tags every mutation with where it came from, replacing fragile
// callback-identity checks for local/remote discrimination.
type Origin int

const (
	// OriginLocal marks a mutation produced by the local user or editor.
	OriginLocal Origin = iota

	// OriginRemote marks a mutation produced by a remote peer.
	OriginRemote
)

// String returns the string representation of the origin.
func (o Origin) String() string {
	switch o {
	case OriginLocal:
		return "local"
	case OriginRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// KeyKind classifies a local keystroke for typing detection. Only
// content-affecting keys count as typing activity.
type KeyKind int

const (
	// KeyVisible is a printable character key.
	KeyVisible KeyKind = iota

	// KeyBackspace is the backspace key.
	KeyBackspace

	// KeyDelete is the delete key.
	KeyDelete

	// KeyEnter is the enter key.
	KeyEnter

	// KeyTab is the tab key.
	KeyTab

	// KeyOther is any non-content key (arrows, modifiers, function keys).
	KeyOther
)

// ContentAffecting reports whether the key produces or removes document
// content and therefore qualifies as typing activity.
func (k KeyKind) ContentAffecting() bool {
	switch k {
	case KeyVisible, KeyBackspace, KeyDelete, KeyEnter, KeyTab:
		return true
	default:
		return false
	}
}
