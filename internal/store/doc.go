// Package store provides SQLite-backed durable storage for briefs.
//
// The store holds three tables:
//   - Briefs: full JSON documents, replaced wholesale on every put
//   - Confirmation Signals: outbox of client confirmations, deduplicated per session
//   - Status History: append-only log of lifecycle transitions
//
// # Versioning
//
// current_version is owned by the store. PutBrief ignores the version on the
// incoming document and writes the stored version plus one, so the returned
// brief is the authoritative copy callers should adopt.
//
// # Deterministic Query Results
//
// Every list query has an ORDER BY that ends in a unique column.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Deleting a brief cascades to its signals and history
package store
