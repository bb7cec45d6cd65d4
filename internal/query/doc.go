// Package query decides when to call the API client and caches the results.
//
// Every cached result lives in an entry addressed by a Key. Entries move
// through a small state machine:
//
//	idle -> fetching -> fresh | error
//	fresh -> stale      (staleness window elapsed, or Invalidate)
//	stale -> fetching   (next read)
//	error -> fetching   (next read, after the retry budget was spent)
//
// Reads (Get, GetList, Watch) are configured with a Policy. Writes
// (Mutate) are one-shot and list the keys they make stale on success.
//
// # Concurrency
//
// Concurrent reads of the same key share one in-flight fetch: exactly one
// network call is made and every waiter resolves from its result. A
// caller that gives up (context cancelled) detaches without cancelling
// the shared fetch.
//
// When two fetches for the same key overlap (a read joins after an
// invalidation dropped the previous in-flight call), the result of the
// most recently initiated fetch wins. Each fetch is stamped with a
// sequence number from a logical Clock; a completing fetch is applied
// only if its sequence is newer than the one already applied.
//
// The Manager is the only writer of cache entries.
package query
