// Package inmemdb provides in-memory repositories used by tests and
// local development.
package inmemdb

import (
	"strconv"
	"strings"
	"sync"

	"github.com/invigilo/invigilo/core/activitylog"
	"github.com/invigilo/invigilo/core/entity"
	"github.com/invigilo/invigilo/core/examconfig"
	"github.com/invigilo/invigilo/core/institution"
	"github.com/invigilo/invigilo/core/user"
)

type DB struct {
	mu sync.RWMutex
	pk int64

	institutions map[int64]institution.Institution
	users        map[int64]user.User
	logs         map[int64]activitylog.Log
	nodes        map[int64]examconfig.Node
	configs      map[int64]examconfig.Configuration
	attrs        map[int64]examconfig.Attribute
	values       map[int64]examconfig.Value
}

func Open() (*DB, error) {
	return &DB{
		institutions: make(map[int64]institution.Institution),
		users:        make(map[int64]user.User),
		logs:         make(map[int64]activitylog.Log),
		nodes:        make(map[int64]examconfig.Node),
		configs:      make(map[int64]examconfig.Configuration),
		attrs:        make(map[int64]examconfig.Attribute),
		values:       make(map[int64]examconfig.Value),
	}, nil
}

// nextPK must be called with the write lock held.
func (db *DB) nextPK() int64 {
	db.pk++
	return db.pk
}

// AddAttribute seeds the attribute catalog; tests stand in for the
// SQL migration here.
func (db *DB) AddAttribute(attr examconfig.Attribute) examconfig.Attribute {
	db.mu.Lock()
	defer db.mu.Unlock()
	if attr.ID == 0 {
		attr.ID = db.nextPK()
	} else if attr.ID > db.pk {
		db.pk = attr.ID
	}
	db.attrs[attr.ID] = attr
	return attr
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// parseID parses a numeric model id; malformed ids read as not found.
func parseID(modelID string) (int64, error) {
	id, err := strconv.ParseInt(modelID, 10, 64)
	if err != nil {
		return 0, entity.ErrNotFound
	}
	return id, nil
}
