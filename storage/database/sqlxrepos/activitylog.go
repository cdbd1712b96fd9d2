package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/invigilo/invigilo/core"
	"github.com/invigilo/invigilo/core/activitylog"
	"github.com/invigilo/invigilo/core/entity"
)

const activityLogCols = `id, institution_id, user_uuid, username, timestamp, activity_type, entity_type, entity_id, message`

var (
	activityLogOrderings = map[string]string{
		"id":            "id",
		"timestamp":     "timestamp",
		"username":      "username",
		"activity_type": "activity_type",
	}

	errLogsReadOnly = errors.New("user activity logs are read only")
)

type activityLogRepository struct {
	db *sqlx.DB
}

var _ activitylog.Repository = (*activityLogRepository)(nil)

func NewActivityLogRepository(db *sqlx.DB) activitylog.Repository {
	return &activityLogRepository{db: db}
}

func (repo *activityLogRepository) EntityType() entity.Type { return entity.TypeUserActivityLog }

func (repo *activityLogRepository) ByModelID(ctx context.Context, modelID string) (activitylog.Log, error) {
	id, err := parseID(modelID)
	if err != nil {
		return activitylog.Log{}, err
	}
	var record activitylog.Log
	err = repo.db.GetContext(ctx, &record,
		"SELECT "+activityLogCols+" FROM user_activity_log WHERE id = $1", id)
	return record, notFoundErr(err)
}

func (repo *activityLogRepository) AllMatching(ctx context.Context, filter entity.FilterMap, ords []core.DBOrdering) ([]activitylog.Log, error) {
	cond := new(conditions)
	if id := filter.InstitutionID(); id != 0 {
		cond.add("institution_id = $%d", id)
	}
	if uuid := filter.GetString(activitylog.FilterAttrUserUUID); uuid != "" {
		cond.add("user_uuid = $%d", uuid)
	}
	if typ := filter.GetString(activitylog.FilterAttrActivityType); typ != "" {
		cond.add("activity_type = $%d", typ)
	}
	if typ := filter.GetString(activitylog.FilterAttrEntityType); typ != "" {
		cond.add("entity_type = $%d", typ)
	}
	if from := filter.GetTime(entity.FilterAttrFrom); !from.IsZero() {
		cond.add("timestamp >= $%d", from.UnixMilli())
	}
	if to := filter.GetTime(entity.FilterAttrTo); !to.IsZero() {
		cond.add("timestamp < $%d", to.UnixMilli())
	}

	q := "SELECT " + activityLogCols + " FROM user_activity_log" + cond.where() +
		orderClause(ords, activityLogOrderings, "id DESC")
	logs := make([]activitylog.Log, 0)
	err := repo.db.SelectContext(ctx, &logs, q, cond.args...)
	return logs, err
}

func (repo *activityLogRepository) LoadEntities(ctx context.Context, keys []entity.Key) ([]activitylog.Log, error) {
	ids := make([]int64, 0, len(keys))
	for _, key := range keys {
		if id, err := parseID(key.ModelID); err == nil {
			ids = append(ids, id)
		}
	}
	logs := make([]activitylog.Log, 0, len(ids))
	err := repo.db.SelectContext(ctx, &logs,
		"SELECT "+activityLogCols+" FROM user_activity_log WHERE id = ANY($1) ORDER BY id DESC", pq.Array(ids))
	return logs, err
}

func (repo *activityLogRepository) CreateNew(context.Context, activitylog.Mod) (activitylog.Log, error) {
	return activitylog.Log{}, errLogsReadOnly
}

func (repo *activityLogRepository) Save(context.Context, string, activitylog.Mod) (activitylog.Log, error) {
	return activitylog.Log{}, errLogsReadOnly
}

func (repo *activityLogRepository) CreateLog(ctx context.Context, record activitylog.Log) (activitylog.Log, error) {
	err := repo.db.GetContext(ctx, &record.ID,
		`INSERT INTO user_activity_log (institution_id, user_uuid, username, timestamp, activity_type, entity_type, entity_id, message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		record.InstitutionID, record.UserUUID, record.Username, record.Timestamp,
		record.ActivityType, record.TargetType, record.EntityID, record.Message)
	return record, errors.Wrap(err, "inserting activity log")
}
