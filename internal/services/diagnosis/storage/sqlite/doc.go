// Package sqlite provides the wizard session store backed by SQLite.
//
// Rows are short-lived: they expire with the session and are purged by the
// service sweeper.
package sqlite
