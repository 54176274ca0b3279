// Package monitoring exposes Prometheus metrics for the bot: inbound
// events and cooldown drops, pre-flight upload rejections, build runs
// and durations, delivery outcomes, live session count, and ops-server
// request metrics. The ops server serves them at /metrics.
package monitoring
