// Package stream fans build-log lines out to live websocket viewers.
//
// The builder publishes each captured line as it arrives; the ops
// server's /ws/builds endpoint subscribes. Delivery is best-effort:
// a subscriber that falls behind drops lines instead of blocking the
// build that produced them.
package stream
