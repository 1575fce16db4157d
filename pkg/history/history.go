// Package history records the searches made through OpenChain.
//
// Every successful recommendation search is stored as an [Entry]. Two stores
// implement [Store]:
//
//   - [MemoryStore]: a bounded in-process ring, the default
//   - [MongoStore]: a MongoDB collection shared by all server instances
//
// Recent entries are served by GET /api/history and listed by the explore
// command.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultLimit is the number of entries Recent returns for limit <= 0.
const DefaultLimit = 20

// MaxLimit caps the number of entries a single Recent call returns.
const MaxLimit = 200

// Entry is one recorded search.
type Entry struct {
	ID        string    `json:"id" bson:"_id"`
	Type      string    `json:"type" bson:"type"`
	Name      string    `json:"name" bson:"name"`
	Find      string    `json:"find" bson:"find"`
	Nodes     int       `json:"nodes" bson:"nodes"`
	Links     int       `json:"links" bson:"links"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// NewEntry creates an entry with a fresh id and the current time.
func NewEntry(typ, name, find string, nodes, links int) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Type:      typ,
		Name:      name,
		Find:      find,
		Nodes:     nodes,
		Links:     links,
		CreatedAt: time.Now().UTC(),
	}
}

// Store persists entries.
type Store interface {
	// Record stores e.
	Record(ctx context.Context, e Entry) error
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)
	// Close releases the store's resources.
	Close(ctx context.Context) error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendMongo  = "mongo"
)

// Options selects and configures a store.
type Options struct {
	Backend    string // "memory" (default) or "mongo"
	Capacity   int    // MemoryStore size
	MongoURI   string
	Database   string
	Collection string
}

// Open creates the store described by opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryStore(opts.Capacity), nil
	case BackendMongo:
		s, err := NewMongoStore(ctx, opts.MongoURI, opts.Database, opts.Collection)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown history backend %q", opts.Backend)
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}
