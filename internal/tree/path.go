package tree

import "strings"

// FindPath returns the path of the first file (depth-first, left-to-right)
// whose name and extension match target. Matching is structural, so a copy
// of a file resolves to the same path as the original.
func FindPath(target *File, root *Folder) (string, bool) {
	if target == nil || root == nil {
		return "", false
	}
	return findPath(target, root, "")
}

func findPath(target *File, folder *Folder, prefix string) (string, bool) {
	for _, item := range folder.Items {
		switch n := item.(type) {
		case *File:
			if n.Name == target.Name && n.Extension == target.Extension {
				return join(prefix, FileName(n)), true
			}
		case *Folder:
			if p, ok := findPath(target, n, join(prefix, n.Name)); ok {
				return p, true
			}
		}
	}
	return "", false
}

// GenerateID derives the identity of file within root: its path without
// leading slashes, or FileName(file) when the file is not in the tree.
func GenerateID(file *File, root *Folder) string {
	p, ok := FindPath(file, root)
	if !ok {
		return FileName(file)
	}
	return strings.TrimLeft(p, "/")
}

// Lookup returns the file at path.
func Lookup(root *Folder, path string) (*File, bool) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return nil, false
	}
	parent, ok := folderAt(root, segs[:len(segs)-1])
	if !ok {
		return nil, false
	}
	i := fileIndex(parent, segs[len(segs)-1])
	if i < 0 {
		return nil, false
	}
	return parent.Items[i].(*File), true
}

// LookupFolder returns the folder at path. The empty path is root.
func LookupFolder(root *Folder, path string) (*Folder, bool) {
	return folderAt(root, splitPath(path))
}

func folderAt(root *Folder, segs []string) (*Folder, bool) {
	cur := root
	for _, seg := range segs {
		i := folderIndex(cur, seg)
		if i < 0 {
			return nil, false
		}
		cur = cur.Items[i].(*Folder)
	}
	return cur, true
}

func fileIndex(folder *Folder, label string) int {
	for i, item := range folder.Items {
		if f, ok := item.(*File); ok && FileName(f) == label {
			return i
		}
	}
	return -1
}

func folderIndex(folder *Folder, name string) int {
	for i, item := range folder.Items {
		if f, ok := item.(*Folder); ok && f.Name == name {
			return i
		}
	}
	return -1
}
