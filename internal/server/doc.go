// Package server provides the operational HTTP surface of the bot.
//
// The chat transport carries all user traffic; this server exists for
// operators only:
//   - Health and status probes
//   - Prometheus metrics endpoint
//   - WebSocket feed of live build output
//
// Middleware stack:
//   - Recovery
//   - CORS
//   - Per-IP rate limiting
//   - Request metrics
//
// Example Usage:
//
//	srv := server.New(cfg, store, hub, metrics, registry, logger)
//	go srv.Start()
//	defer srv.Shutdown(ctx)
package server
