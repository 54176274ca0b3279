// Package cooldown implements the bot's two rate-limiting layers.
//
// Inbound: one event per second per user. Events arriving faster are
// dropped before any handler runs, with no reply. Button presses and
// messages share the same per-user clock.
//
// Outbound: a single process-wide sender lock spaces all transmissions
// at least one second apart, keeping the bot inside the transport's
// send-rate limits at the cost of cross-user fairness.
package cooldown
