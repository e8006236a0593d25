// Package source implements the Source Branch layer: a forkable
// overlay that presents a statement store (or another branch) as a
// layerable source of pending change. A Branch owns a chain of
// committed-but-not-yet-flushed child change-sets (the "prepend
// list") and a commit mutex serializing flush into it.
//
// Branches are registered in an Arena, which issues an opaque Handle
// for each; upper layers such as dataset.View hold *Branch pointers
// directly (see Handle's doc comment).
package source
