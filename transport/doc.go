// Package transport implements the realtime signaling channel over a
// websocket connection.
//
// The channel carries ephemeral awareness events only (presence, cursors,
// selections, typing); document content never travels through it. Frames are
// JSON text messages of the form {"event": name, "data": payload}. Events for
// a single user id are delivered in the order the server sent them; duplicate
// or replayed events are the coordinator's concern.
//
// The client reconnects automatically with exponential backoff after
// transport-level errors and re-joins the last room on success, which causes
// the server to resend the full presence snapshot.
package transport
