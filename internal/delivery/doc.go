// Package delivery chooses how a built binary reaches the user.
//
// The messaging transport enforces a hard upload ceiling independent of
// the packaging tool's output size. Binaries within the ceiling go out
// directly; larger ones are zipped once at maximum compression; and
// when even the archive is too big the user receives a report naming
// the binary's server-side path for manual recovery.
package delivery
