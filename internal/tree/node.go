package tree

import "strings"

// RootName is the folder name given to synthesized roots.
const RootName = "root"

// Node is a member of a tree. It is implemented only by *File and *Folder.
type Node interface {
	// Label is the name shown for the node: the folder name, or name.ext.
	Label() string
	node()
}

// File is a leaf node holding text content.
type File struct {
	Name      string
	Extension string
	Content   string
}

// Folder is an ordered container of nodes.
type Folder struct {
	Name  string
	Items []Node
}

func (f *File) Label() string   { return FileName(f) }
func (f *Folder) Label() string { return f.Name }

func (*File) node()   {}
func (*Folder) node() {}

// NewRoot returns a folder named RootName holding items.
func NewRoot(items ...Node) *Folder {
	return &Folder{Name: RootName, Items: items}
}

// FileName returns "name.ext", or just the name when there is no extension.
func FileName(f *File) string {
	if f.Extension == "" {
		return f.Name
	}
	return f.Name + "." + f.Extension
}

// SplitFileName splits a base name at its last dot. Dotfiles without a
// second dot (".gitignore") keep the whole base as name.
func SplitFileName(base string) (name, ext string) {
	i := strings.LastIndex(base, ".")
	if i <= 0 || i == len(base)-1 {
		return base, ""
	}
	return base[:i], base[i+1:]
}

// Walk calls fn for every file under root in depth-first, left-to-right
// order with the file's path.
func Walk(root *Folder, fn func(path string, f *File)) {
	walk(root, "", fn)
}

func walk(folder *Folder, prefix string, fn func(string, *File)) {
	for _, item := range folder.Items {
		switch n := item.(type) {
		case *File:
			fn(join(prefix, FileName(n)), n)
		case *Folder:
			walk(n, join(prefix, n.Name), fn)
		}
	}
}

// Count returns the number of files and folders under root, root excluded.
func Count(root *Folder) (files, folders int) {
	for _, item := range root.Items {
		switch n := item.(type) {
		case *File:
			files++
		case *Folder:
			folders++
			f, d := Count(n)
			files += f
			folders += d
		}
	}
	return files, folders
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

func splitPath(p string) []string {
	var segs []string
	for _, s := range strings.Split(p, "/") {
		if s != "" && s != "." {
			segs = append(segs, s)
		}
	}
	return segs
}
