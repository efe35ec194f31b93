// Package relay owns the bridge between the two framed channels.
//
// Ownership boundary:
// - browser read loop (stdio, little-endian frames)
//
// - engine accept/read loop (TCP, big-endian frames)
//
// - dispatch: local command interception, forward-by-default, error replies
//
// Lifecycle order:
// - bootstrap -> serve
//
// - browser channel closure is the only clean shutdown trigger.
//
// - engine peer disconnects never terminate anything; the accept loop
//   re-arms immediately.
//
// The relay does not interpret message contents beyond the "cmd"
// discriminator.
package relay
