// Package store is the Statement Store layer: the ultimate source of
// truth for committed statements and namespaces. It is intentionally
// the only layer that knows how statements are physically indexed;
// everything above it (source.Branch, dataset.View, sink.Sink) only
// ever sees the Source interface.
//
// Two implementations are provided: Memory, indexed four ways with
// google/btree for pure in-process use, and Bolt, backed by a bbolt
// database for durability. Paired composes an explicit and an
// inferred Source the way spec §4.1 requires of a Statement Store.
package store
