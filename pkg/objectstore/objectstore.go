// Package objectstore implements the Object Store Gateway: storage of
// uploaded resume documents under caller-chosen keys (see ItemKey),
// independent of the State Store.
package objectstore

import (
	"context"
	"fmt"
	"io"
)

// Gateway is the Object Store Gateway interface (spec.md §4.2). Keys are
// caller-chosen and opaque to the gateway; by convention the Batch
// Controller keys objects as "<batch_id>/<item_id>-<filename>".
type Gateway interface {
	// Put writes the contents of r under key, overwriting any existing
	// object at that key.
	Put(ctx context.Context, key string, r io.Reader) error

	// Get opens the object at key for reading. Callers must close it.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// DeleteAll removes every object whose key has the given prefix. Used
	// by teardown_batch to remove every item's document in one call.
	DeleteAll(ctx context.Context, prefix string) error
}

// BatchPrefix is the key prefix under which every object for batchID lives,
// so delete_all(batchID) (spec.md §6) removes every byte the batch ever
// wrote regardless of how many items it has.
func BatchPrefix(batchID string) string {
	return batchID
}

// ItemKey is the unique-per-(batch,item,filename) key the Batch Controller
// uploads under, satisfying spec.md §6's object-store layout requirement.
func ItemKey(batchID, itemID, filename string) string {
	return fmt.Sprintf("%s/%s-%s", batchID, itemID, filename)
}
