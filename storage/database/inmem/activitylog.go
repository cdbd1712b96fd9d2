package inmemdb

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/invigilo/invigilo/core"
	"github.com/invigilo/invigilo/core/activitylog"
	"github.com/invigilo/invigilo/core/entity"
)

var errLogsReadOnly = errors.New("user activity logs are read only")

type activityLogRepository struct {
	db *DB
}

var _ activitylog.Repository = (*activityLogRepository)(nil)

func NewActivityLogRepository(db *DB) activitylog.Repository {
	return &activityLogRepository{db: db}
}

func (repo *activityLogRepository) EntityType() entity.Type { return entity.TypeUserActivityLog }

func (repo *activityLogRepository) ByModelID(_ context.Context, modelID string) (activitylog.Log, error) {
	id, err := parseID(modelID)
	if err != nil {
		return activitylog.Log{}, err
	}
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if record, ok := repo.db.logs[id]; ok {
		return record, nil
	}
	return activitylog.Log{}, activitylog.ErrNotFound
}

func (repo *activityLogRepository) AllMatching(_ context.Context, filter entity.FilterMap, ords []core.DBOrdering) ([]activitylog.Log, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	logs := make([]activitylog.Log, 0, len(repo.db.logs))
	for _, record := range repo.db.logs {
		if id := filter.InstitutionID(); id != 0 && record.InstitutionID != id {
			continue
		}
		if uuid := filter.GetString(activitylog.FilterAttrUserUUID); uuid != "" && record.UserUUID != uuid {
			continue
		}
		if typ := filter.GetString(activitylog.FilterAttrActivityType); typ != "" && string(record.ActivityType) != typ {
			continue
		}
		if typ := filter.GetString(activitylog.FilterAttrEntityType); typ != "" && string(record.TargetType) != typ {
			continue
		}
		if from := filter.GetTime(entity.FilterAttrFrom); !from.IsZero() && record.Timestamp < from.UnixMilli() {
			continue
		}
		if to := filter.GetTime(entity.FilterAttrTo); !to.IsZero() && record.Timestamp >= to.UnixMilli() {
			continue
		}
		logs = append(logs, record)
	}

	asc := false
	for _, ord := range ords {
		if ord.Field == "id" || ord.Field == "timestamp" {
			asc = ord.Ascending
		}
	}
	sort.Slice(logs, func(i, j int) bool {
		if asc {
			return logs[i].ID < logs[j].ID
		}
		return logs[i].ID > logs[j].ID
	})
	return logs, nil
}

func (repo *activityLogRepository) LoadEntities(ctx context.Context, keys []entity.Key) ([]activitylog.Log, error) {
	logs := make([]activitylog.Log, 0, len(keys))
	for _, key := range keys {
		if record, err := repo.ByModelID(ctx, key.ModelID); err == nil {
			logs = append(logs, record)
		}
	}
	return logs, nil
}

func (repo *activityLogRepository) CreateNew(context.Context, activitylog.Mod) (activitylog.Log, error) {
	return activitylog.Log{}, errLogsReadOnly
}

func (repo *activityLogRepository) Save(context.Context, string, activitylog.Mod) (activitylog.Log, error) {
	return activitylog.Log{}, errLogsReadOnly
}

func (repo *activityLogRepository) CreateLog(_ context.Context, record activitylog.Log) (activitylog.Log, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	record.ID = repo.db.nextPK()
	repo.db.logs[record.ID] = record
	return record, nil
}
