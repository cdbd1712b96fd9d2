package activitylog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/invigilo/invigilo/core/activitylog"
	"github.com/invigilo/invigilo/core/authz"
	"github.com/invigilo/invigilo/core/entity"
	"github.com/invigilo/invigilo/core/user"
	inmemdb "github.com/invigilo/invigilo/storage/database/inmem"
)

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func setup(t *testing.T) (*activitylog.Service, activitylog.Repository) {
	t.Helper()
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	repo := inmemdb.NewActivityLogRepository(db)
	return activitylog.NewService(repo, nopLogger{}), repo
}

func TestServiceLogRecordsTarget(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	actor := authz.Actor{UUID: "sa", Roles: []string{authz.RoleServerAdmin}}
	target := user.User{UUID: "u1", InstitutionID: 3, Username: "jdoe"}

	svc.Log(ctx, actor, "admin", activitylog.ActivityModify, target, "")

	logs, err := repo.AllMatching(ctx, entity.NewFilterMap(), nil)
	assert.NoError(t, err)
	if !assert.Len(t, logs, 1) {
		return
	}
	record := logs[0]
	assert.Equal(t, entity.TypeUser, record.TargetType)
	assert.Equal(t, "u1", record.EntityID)
	// institution taken from the target entity, not the actor
	assert.Equal(t, int64(3), record.InstitutionID)
	assert.Equal(t, activitylog.ActivityModify, record.ActivityType)

	// the record itself is a log entity, regardless of its target
	assert.Equal(t, entity.TypeUserActivityLog, record.EntityType())
	assert.Equal(t, "MODIFY USER u1", record.EntityName())
}

func TestServiceLogWithoutTarget(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	actor := authz.Actor{UUID: "u1", InstitutionID: 2, Roles: []string{authz.RoleExamAdmin}}
	svc.Log(ctx, actor, "jdoe", activitylog.ActivityLogin, nil, "")

	logs, err := repo.AllMatching(ctx, entity.NewFilterMap(), nil)
	assert.NoError(t, err)
	if !assert.Len(t, logs, 1) {
		return
	}
	assert.Equal(t, entity.Type(""), logs[0].TargetType)
	assert.Equal(t, int64(2), logs[0].InstitutionID)
	assert.Equal(t, "jdoe", logs[0].Username)
}

func TestRepositoryFilterByTargetType(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	actor := authz.Actor{UUID: "sa", Roles: []string{authz.RoleServerAdmin}}
	svc.Log(ctx, actor, "admin", activitylog.ActivityModify, user.User{UUID: "u1"}, "")
	svc.Log(ctx, actor, "admin", activitylog.ActivityLogin, nil, "")

	filter := entity.NewFilterMap().PutIfAbsent(activitylog.FilterAttrEntityType, string(entity.TypeUser))
	logs, err := repo.AllMatching(ctx, filter, nil)
	assert.NoError(t, err)
	if assert.Len(t, logs, 1) {
		assert.Equal(t, entity.TypeUser, logs[0].TargetType)
	}
}
