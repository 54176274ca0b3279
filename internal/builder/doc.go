// Package builder invokes the external packaging tool (PyInstaller)
// that turns a merged source artifact into a standalone binary.
//
// The tool runs as a child process with a fixed option set: single-file
// output, clean rebuild, no prompts, a derived windowed flag, and
// session-scoped dist/build/spec directories. Combined stdout/stderr is
// captured into an ordered log and mirrored to the live stream hub.
//
// Failure modes are expressed through the result, never as errors: a
// missing tool yields an install hint in the log, a launch error yields
// the error text, and a clean exit without an output binary yields a
// log the user can read. An icon whose extension is outside the
// platform allow-list is skipped with a warning; it never fails the
// build.
package builder
