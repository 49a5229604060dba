package replication

// Engine is the document engine boundary. Implementations wrap the actual
// shared-document representation (typically a CRDT); this package and the
// coordinator treat updates as opaque bytes.
//
// The coordinator calls ApplyRemote from its event goroutine only. The
// local-update callback may fire from any goroutine the engine uses
// internally.
type Engine interface {
	// ApplyRemote merges an update received from a peer into the local
	// document.
	ApplyRemote(update []byte) error

	// SetOnLocalUpdate registers the callback invoked with the encoded
	// update whenever the local document changes. Passing nil removes the
	// callback.
	SetOnLocalUpdate(fn func(update []byte))

	// Text returns the current document content.
	Text() string

	// SetText replaces the document content. Used to seed an empty shared
	// document with initial content on first join.
	SetText(content string)

	// Destroy releases engine resources. The engine must not invoke the
	// local-update callback afterwards.
	Destroy()
}
