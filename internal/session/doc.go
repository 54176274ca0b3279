// Package session holds per-user merge state between a merge command
// and its completion.
//
// A Session records the output base name, the windowed flag, up to two
// source files, and an optional icon. Sessions live only in memory and
// do not survive a restart.
//
// Classification rules:
//   - while awaiting an icon (explicit icon-change action), the next
//     upload becomes the icon regardless of extension
//   - otherwise .ico/.icns/.png uploads fill an empty icon slot
//   - everything else joins the file list; a third file evicts the
//     oldest so the two most recent are kept
package session
