// Package transport defines the messaging-platform boundary: the three
// inbound event kinds the workflow reacts to, and the Sender/Fetcher
// contracts the platform client implements.
//
// The workflow depends only on these interfaces; the Telegram client in
// the telegram subpackage is one implementation.
package transport
