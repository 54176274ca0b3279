// Package telegram implements the transport boundary against the
// Telegram Bot API.
//
// The client wraps resty over a retrying HTTP transport and covers the
// five methods the bot needs: getMe, getUpdates (long-poll),
// sendMessage with inline keyboards, sendDocument (multipart upload),
// and getFile plus the file download.
//
// The poller turns raw updates into the three transport event kinds
// (command, document upload, button press) and dispatches each update
// on its own goroutine.
package telegram
