// Package state persists node attributes behind a small Store contract and
// adapts any Store into an assoc.Sync.
//
// Responsibilities:
//   - Store loads, saves and deletes the serialized attributes of one node,
//     addressed by Ref{Type, ID}.
//   - Save honours optimistic concurrency: a non-empty Meta.ETag must match
//     the stored one or ErrETagMismatch is returned.
//   - Sync maps assoc methods onto a Store, assigns ids to new nodes and
//     remembers the last ETag seen per node.
//
// Data flow:
//
//	Node.Save -> Sync.Sync(create|update) -> Store.Save
//	Node.Fetch -> Sync.Sync(read) -> Store.Load -> Node.Set
//
// Implementations: MemoryStore here, sqlitestore and redisstore in
// subpackages.
package state
