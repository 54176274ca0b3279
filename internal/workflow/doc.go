// Package workflow is the per-user session state machine.
//
// An inbound event (command, button press, document upload) first
// passes the inbound cooldown; admitted events run under the user's
// store lock. Uploads are size-checked against two independent
// ceilings before any fetch: the advertised 100 MB user limit and the
// transport's stricter ~20 MB getFile restriction. When a session
// reaches two files the workflow immediately runs the merge → build →
// deliver sequence, removing the session first so nothing re-triggers
// it; afterwards the user starts over with /merge.
//
// Every failure is converted to a user-visible message at the step
// that produced it. A top-level recover catches anything unexpected,
// logs it, and makes one best-effort notification.
package workflow
