// Package transform converts a workspace tree into the nested mount mapping
// a sandbox runtime consumes: folders become {"directory": {...}} entries and
// files become {"file": {"contents": ...}} entries keyed by "name.ext".
package transform

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/tree"
)

// Mapping is a directory listing keyed by entry name.
type Mapping map[string]Entry

// Entry is exactly one of File or Directory.
type Entry struct {
	File      *FileContents `json:"file,omitempty"`
	Directory Mapping       `json:"directory,omitempty"`
}

// FileContents is the payload of a file entry.
type FileContents struct {
	Contents string `json:"contents"`
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool { return e.File == nil }

// MarshalJSON keeps empty directories as {"directory":{}}.
func (e Entry) MarshalJSON() ([]byte, error) {
	if e.File != nil {
		return json.Marshal(struct {
			File *FileContents `json:"file"`
		}{e.File})
	}
	dir := e.Directory
	if dir == nil {
		dir = Mapping{}
	}
	return json.Marshal(struct {
		Directory Mapping `json:"directory"`
	}{dir})
}

// Transform builds the mapping for root's items. It panics on a nil or
// foreign node, which can only come from a programming error.
func Transform(root *tree.Folder) Mapping {
	return transformItems(root.Items)
}

func transformItems(items []tree.Node) Mapping {
	m := make(Mapping, len(items))
	for _, item := range items {
		switch n := item.(type) {
		case *tree.File:
			m[tree.FileName(n)] = Entry{File: &FileContents{Contents: n.Content}}
		case *tree.Folder:
			m[n.Name] = Entry{Directory: transformItems(n.Items)}
		default:
			panic(fmt.Sprintf("transform: unexpected node %T", item))
		}
	}
	return m
}

// Lookup returns the entry at a slash-separated path.
func (m Mapping) Lookup(path string) (Entry, bool) {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	cur := m
	for i, seg := range segs {
		e, ok := cur[seg]
		if !ok {
			return Entry{}, false
		}
		if i == len(segs)-1 {
			return e, true
		}
		if !e.IsDir() {
			return Entry{}, false
		}
		cur = e.Directory
	}
	return Entry{}, false
}

// Flatten returns file contents keyed by path.
func (m Mapping) Flatten() map[string]string {
	out := make(map[string]string)
	m.flatten("", out)
	return out
}

func (m Mapping) flatten(prefix string, out map[string]string) {
	for name, e := range m {
		p := name
		if prefix != "" {
			p = prefix + "/" + name
		}
		if e.IsDir() {
			e.Directory.flatten(p, out)
			continue
		}
		out[p] = e.File.Contents
	}
}

// Dirs returns every directory path in lexical order, parents before
// children.
func (m Mapping) Dirs() []string {
	var dirs []string
	var visit func(prefix string, mm Mapping)
	visit = func(prefix string, mm Mapping) {
		for name, e := range mm {
			if !e.IsDir() {
				continue
			}
			p := name
			if prefix != "" {
				p = prefix + "/" + name
			}
			dirs = append(dirs, p)
			visit(p, e.Directory)
		}
	}
	visit("", m)
	sort.Strings(dirs)
	return dirs
}
