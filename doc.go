// Package iinterview coordinates presence and synchronization state for one
// participant of a collaborative text-editing session.
//
// A Coordinator owns the full session lifecycle for one user in one room:
// deterministic color assignment, the presence registry (who is online, their
// cursors, selections and typing state), typing detection with debounce and
// expiry, connection health across the signaling and replication channels,
// decoration recomputation gating during remote document mutations, and
// periodic content persistence deduplicated by fingerprint.
//
// All presence mutations flow through a single event goroutine, so the
// internal state needs no cross-component locking; reads (Snapshot,
// CombinedStatus) are safe from any goroutine.
//
// Basic usage:
//
//	cfg := iinterview.DefaultConfig()
//	cfg.RoomID = "room-42"
//
//	coord, err := iinterview.NewCoordinator(cfg, self, transport, engine,
//	    iinterview.WithLogger(logger),
//	    iinterview.WithContentStore(store),
//	    iinterview.WithMarkerSink(editor),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := coord.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer coord.Stop(context.Background())
package iinterview
