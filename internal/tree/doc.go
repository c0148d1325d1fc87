// Package tree implements the virtual file tree of a playground workspace.
//
// A tree is a root *Folder whose Items are *File and *Folder nodes. Trees are
// persistent values: every structural operation (AddFile, RenameFolder,
// UpdateFileContent, ...) returns a new root that shares untouched subtrees
// with the old one, and the old root stays valid. Callers must never modify
// a node reachable from a root they did not just build.
//
// Files are addressed by path: the names of their ancestor folders (the root
// excluded) followed by "name.ext", joined with "/". Paths are unique within
// a tree, so a path doubles as the stable identity of an open buffer.
//
//	root := tree.NewRoot(&tree.Folder{Name: "app", Items: []tree.Node{
//	    &tree.File{Name: "index", Extension: "js", Content: "x"},
//	}})
//	id := tree.GenerateID(file, root) // "app/index.js"
//	root, err := tree.UpdateFileContent(root, id, "y")
package tree
