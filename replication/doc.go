// Package replication carries document content updates between peers.
//
// Updates are opaque byte payloads produced and consumed by the document
// engine; this package never inspects them. The channel is a NATS subject per
// room, with the publishing session's id attached so a peer can skip its own
// broadcasts. Channel health is derived from the NATS connection callbacks
// and reported to the coordinator, which folds it into the combined status.
package replication
