package tree

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type fileJSON struct {
	Filename      string `json:"filename"`
	FileExtension string `json:"fileExtension"`
	Content       string `json:"content"`
}

type folderJSON struct {
	FolderName string            `json:"folderName"`
	Items      []json.RawMessage `json:"items"`
}

// MarshalJSON encodes a file as {"filename","fileExtension","content"}.
func (f *File) MarshalJSON() ([]byte, error) {
	return json.Marshal(fileJSON{Filename: f.Name, FileExtension: f.Extension, Content: f.Content})
}

// MarshalJSON encodes a folder as {"folderName","items"}.
func (f *Folder) MarshalJSON() ([]byte, error) {
	items := f.Items
	if items == nil {
		items = []Node{}
	}
	return json.Marshal(struct {
		FolderName string `json:"folderName"`
		Items      []Node `json:"items"`
	}{f.Name, items})
}

// UnmarshalJSON decodes a file.
func (f *File) UnmarshalJSON(data []byte) error {
	var raw fileJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = File{Name: raw.Filename, Extension: raw.FileExtension, Content: raw.Content}
	return nil
}

// UnmarshalJSON decodes a folder and its items.
func (f *Folder) UnmarshalJSON(data []byte) error {
	var raw folderJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	items := make([]Node, 0, len(raw.Items))
	for i, msg := range raw.Items {
		n, err := decodeNode(msg)
		if err != nil {
			return fmt.Errorf("%s: item %d: %w", raw.FolderName, i, err)
		}
		items = append(items, n)
	}
	*f = Folder{Name: raw.FolderName, Items: items}
	return nil
}

func decodeNode(data json.RawMessage) (Node, error) {
	var probe struct {
		FolderName *string          `json:"folderName"`
		Items      *json.RawMessage `json:"items"`
		Filename   *string          `json:"filename"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	switch {
	case probe.FolderName != nil || probe.Items != nil:
		folder := &Folder{}
		if err := folder.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return folder, nil
	case probe.Filename != nil:
		file := &File{}
		if err := file.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return file, nil
	default:
		return nil, fmt.Errorf("unrecognized node: %s", truncate(data, 64))
	}
}

// Encode serializes root in the persisted document format.
func Encode(root *Folder) ([]byte, error) {
	return json.Marshal(root)
}

// Decode parses a persisted tree. It accepts a folder object, a bare array
// of items (wrapped in a root folder), or either of those encoded once more
// as a JSON string.
func Decode(data []byte) (*Folder, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty tree document")
	}

	switch data[0] {
	case '"':
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return nil, fmt.Errorf("decode tree: %w", err)
		}
		return Decode([]byte(inner))
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode tree: %w", err)
		}
		root := NewRoot()
		for i, msg := range raw {
			n, err := decodeNode(msg)
			if err != nil {
				return nil, fmt.Errorf("decode tree: item %d: %w", i, err)
			}
			root.Items = append(root.Items, n)
		}
		return root, nil
	default:
		root := &Folder{}
		if err := json.Unmarshal(data, root); err != nil {
			return nil, fmt.Errorf("decode tree: %w", err)
		}
		return root, nil
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
