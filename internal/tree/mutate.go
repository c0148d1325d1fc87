package tree

import (
	"errors"
	"path"
	"slices"

	ferrors "github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/errors"
)

var errMissing = errors.New("missing")

// AddFile returns a tree with a copy of file appended to the folder at
// parentPath. A file with the same name and extension already there is a
// collision.
func AddFile(root *Folder, parentPath string, file *File) (*Folder, error) {
	added := *file
	return edit(root, parentPath, join(parentPath, FileName(file)), func(f *Folder) (*Folder, error) {
		if fileIndex(f, FileName(&added)) >= 0 {
			return nil, ferrors.NameCollision(FileName(&added))
		}
		return withItems(f, append(slices.Clone(f.Items), &added)), nil
	})
}

// AddFolder returns a tree with folder appended to the folder at parentPath.
func AddFolder(root *Folder, parentPath string, folder *Folder) (*Folder, error) {
	return edit(root, parentPath, join(parentPath, folder.Name), func(f *Folder) (*Folder, error) {
		if folderIndex(f, folder.Name) >= 0 {
			return nil, ferrors.NameCollision(folder.Name)
		}
		added := &Folder{Name: folder.Name, Items: slices.Clone(folder.Items)}
		return withItems(f, append(slices.Clone(f.Items), added)), nil
	})
}

// DeleteFile returns a tree without the file matching target's name and
// extension in the folder at parentPath.
func DeleteFile(root *Folder, parentPath string, target *File) (*Folder, error) {
	label := FileName(target)
	return edit(root, parentPath, join(parentPath, label), func(f *Folder) (*Folder, error) {
		i := fileIndex(f, label)
		if i < 0 {
			return nil, errMissing
		}
		return withItems(f, slices.Delete(slices.Clone(f.Items), i, i+1)), nil
	})
}

// DeleteFolder returns a tree without the folder named name in the folder
// at parentPath.
func DeleteFolder(root *Folder, parentPath, name string) (*Folder, error) {
	return edit(root, parentPath, join(parentPath, name), func(f *Folder) (*Folder, error) {
		i := folderIndex(f, name)
		if i < 0 {
			return nil, errMissing
		}
		return withItems(f, slices.Delete(slices.Clone(f.Items), i, i+1)), nil
	})
}

// RenameFile gives the file matching target in the folder at parentPath a
// new name and extension, keeping its content and position.
func RenameFile(root *Folder, parentPath string, target *File, newName, newExt string) (*Folder, error) {
	oldLabel := FileName(target)
	renamed := &File{Name: newName, Extension: newExt}
	newLabel := FileName(renamed)
	return edit(root, parentPath, join(parentPath, oldLabel), func(f *Folder) (*Folder, error) {
		i := fileIndex(f, oldLabel)
		if i < 0 {
			return nil, errMissing
		}
		if newLabel != oldLabel && fileIndex(f, newLabel) >= 0 {
			return nil, ferrors.NameCollision(newLabel)
		}
		renamed.Content = f.Items[i].(*File).Content
		items := slices.Clone(f.Items)
		items[i] = renamed
		return withItems(f, items), nil
	})
}

// RenameFolder renames the folder oldName in the folder at parentPath.
// Its subtree is shared with the previous tree.
func RenameFolder(root *Folder, parentPath, oldName, newName string) (*Folder, error) {
	return edit(root, parentPath, join(parentPath, oldName), func(f *Folder) (*Folder, error) {
		i := folderIndex(f, oldName)
		if i < 0 {
			return nil, errMissing
		}
		if newName != oldName && folderIndex(f, newName) >= 0 {
			return nil, ferrors.NameCollision(newName)
		}
		items := slices.Clone(f.Items)
		items[i] = &Folder{Name: newName, Items: f.Items[i].(*Folder).Items}
		return withItems(f, items), nil
	})
}

// UpdateFileContent returns a tree in which the file at filePath holds
// content.
func UpdateFileContent(root *Folder, filePath, content string) (*Folder, error) {
	dir, base := path.Split(path.Clean("/" + filePath))
	return edit(root, dir, filePath, func(f *Folder) (*Folder, error) {
		i := fileIndex(f, base)
		if i < 0 {
			return nil, errMissing
		}
		old := f.Items[i].(*File)
		items := slices.Clone(f.Items)
		items[i] = &File{Name: old.Name, Extension: old.Extension, Content: content}
		return withItems(f, items), nil
	})
}

// edit rebuilds the spine from root to the folder at dir, replacing that
// folder with fn's result. On error root is returned unchanged; errMissing
// from fn or an unresolvable dir become PathNotFound(target).
func edit(root *Folder, dir, target string, fn func(*Folder) (*Folder, error)) (*Folder, error) {
	updated, err := rebuild(root, splitPath(dir), fn)
	if errors.Is(err, errMissing) {
		return root, ferrors.PathNotFound(target)
	}
	if err != nil {
		return root, err
	}
	return updated, nil
}

func rebuild(folder *Folder, segs []string, fn func(*Folder) (*Folder, error)) (*Folder, error) {
	if len(segs) == 0 {
		return fn(folder)
	}
	i := folderIndex(folder, segs[0])
	if i < 0 {
		return nil, errMissing
	}
	child, err := rebuild(folder.Items[i].(*Folder), segs[1:], fn)
	if err != nil {
		return nil, err
	}
	items := slices.Clone(folder.Items)
	items[i] = child
	return withItems(folder, items), nil
}

func withItems(f *Folder, items []Node) *Folder {
	return &Folder{Name: f.Name, Items: items}
}
