// Package workspace holds an editing session over one workspace tree.
//
// A Session owns the current tree, the open buffers and the link to the
// live sandbox. Every change to the tree is persisted through the store
// gateway before the session adopts it, so a failed save or structural
// edit leaves the last persisted tree in place.
//
// # Loading
//
//	s, err := workspace.Open(ctx, id, gw, templates, workspace.Options{
//	    TemplateKey: "REACT",
//	})
//
// A workspace with nothing stored is materialized from its template and
// persisted right away.
//
// # Saving
//
// Save writes one buffer to the sandbox and the store; SaveAll saves every
// dirty buffer and reports per-file outcomes.
package workspace
