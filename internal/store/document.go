package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/tree"
)

// document is the badger value: the tree JSON and its save time,
// compressed with zstd.
type document struct {
	UpdatedAt time.Time       `json:"updatedAt"`
	Content   json.RawMessage `json:"content"`
}

var (
	encoder, _ = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1),
	)
	decoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
)

func encodeDocument(root *tree.Folder, now time.Time) ([]byte, error) {
	content, err := tree.Encode(root)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(document{UpdatedAt: now, Content: content})
	if err != nil {
		return nil, fmt.Errorf("marshaling document: %w", err)
	}
	return encoder.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

func decodeDocument(data []byte) (document, error) {
	var doc document
	raw, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return doc, fmt.Errorf("decompressing document: %w", err)
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("unmarshaling document: %w", err)
	}
	return doc, nil
}
