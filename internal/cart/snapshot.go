package cart

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// SnapshotStore durably keeps one serialized cart per browsing session. Load
// returns (nil, nil) when the session has no snapshot.
type SnapshotStore interface {
	Load(ctx context.Context, sessionID string) ([]byte, error)
	Save(ctx context.Context, sessionID string, data []byte) error
	Delete(ctx context.Context, sessionID string) error
}

// encodeLines serializes lines as a JSON array of {product, quantity}.
func encodeLines(lines []Line) ([]byte, error) {
	if lines == nil {
		lines = []Line{}
	}
	return json.Marshal(lines)
}

// decodeLines parses a snapshot and rejects ones that break cart invariants.
func decodeLines(data []byte) ([]Line, error) {
	var lines []Line
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("decode cart snapshot: %w", err)
	}
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for i, line := range lines {
		if line.Product.ID == uuid.Nil {
			return nil, fmt.Errorf("cart snapshot line %d has no product id", i)
		}
		if line.Quantity < 1 {
			return nil, fmt.Errorf("cart snapshot line %d has quantity %d", i, line.Quantity)
		}
		if _, dup := seen[line.Product.ID]; dup {
			return nil, fmt.Errorf("cart snapshot has duplicate product %s", line.Product.ID)
		}
		seen[line.Product.ID] = struct{}{}
	}
	return lines, nil
}
