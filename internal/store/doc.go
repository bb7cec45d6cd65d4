// Package store holds client-side application state that is not fetched
// from the server: the authenticated session, UI preferences, the
// notification queue and feature flags.
//
// # Persistence
//
// Session and preferences are written through a Persister after every
// change and rehydrated by Open. Each slice is saved under its own key
// (AuthKey, UIKey) as a JSON envelope:
//
//	{"state": {...}, "version": 0}
//
// Three persisters are provided:
//   - SQLitePersister: kv table in SQLite (WAL mode, busy_timeout=5000)
//   - FilePersister: a single YAML document
//   - MemoryPersister: process lifetime only
//
// Notifications and feature flags are never persisted.
package store
