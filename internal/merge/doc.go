// Package merge decodes uploaded byte payloads and assembles the
// annotated merge artifact.
//
// Decoding tries a fixed encoding list in order (utf-8, utf-8-sig,
// cp1251, windows-1251, latin-1); the first strict success wins and no
// encoding is ever chosen by content sniffing. When nothing matches,
// the bytes are force-decoded with replacement and the label says so.
//
// Merging is deterministic: identical inputs always produce
// byte-identical artifacts.
package merge
