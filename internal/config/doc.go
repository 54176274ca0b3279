// Package config provides 12-factor configuration management for the bot.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override the bot token and ops port for development.
//
// Configuration Sections:
//   - Bot: Telegram API base, token, long-poll timeout
//   - Ops: operational HTTP server settings (health, status, metrics)
//   - Limits: inbound/outbound transfer-size ceilings
//   - Cooldown: per-user inbound and global outbound spacing
//   - Builder: packaging tool invocation settings
//   - Logging: log level and output format
//   - RateLimit: ops-server rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("ops server on %s:%s\n", cfg.Ops.Host, cfg.Ops.Port)
//
// Environment Variables:
//   - BOT_TOKEN, BOT_API_BASE, BOT_POLL_TIMEOUT
//   - OPS_PORT, OPS_HOST, OPS_ENABLED
//   - USER_DOWNLOAD_LIMIT, FETCH_CEILING, UPLOAD_CEILING
//   - COOLDOWN_INBOUND, COOLDOWN_OUTBOUND
//   - BUILDER_PYTHON, BUILDER_WORK_ROOT, ICON_EXTENSIONS
//   - LOG_LEVEL, LOG_DEV
package config
