package sqlxrepos

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/invigilo/invigilo/core"
	"github.com/invigilo/invigilo/core/examconfig"
)

const valueSaveQuery = `INSERT INTO configuration_value (institution_id, configuration_id, attribute_id, list_index, value)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (configuration_id, attribute_id, list_index)
		 DO UPDATE SET value = EXCLUDED.value, institution_id = EXCLUDED.institution_id
		 RETURNING id`

func TestValueRepositorySave(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewValueRepository(db)

	val := examconfig.Value{InstitutionID: 1, ConfigurationID: 2, AttributeID: 3, Value: "true"}
	mock.ExpectQuery(valueSaveQuery).
		WithArgs(int64(1), int64(2), int64(3), 0, "true").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	saved, err := repo.Save(context.Background(), val)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), saved.ID)
}

func TestValueRepositorySaveUnknownAttribute(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewValueRepository(db)

	mock.ExpectQuery(valueSaveQuery).
		WithArgs(int64(1), int64(2), int64(999), 0, "true").
		WillReturnError(&pq.Error{Code: "23503", Constraint: "configuration_value_attribute_id_fkey"})

	_, err := repo.Save(context.Background(), examconfig.Value{
		InstitutionID: 1, ConfigurationID: 2, AttributeID: 999, Value: "true",
	})
	assert.Error(t, err)

	vErr, ok := errors.Cause(err).(*core.ValidationError)
	if assert.True(t, ok, "want a validation error; got %v", err) {
		assert.Len(t, vErr.Fields, 1)
		assert.Equal(t, "attribute_id", vErr.Fields[0].Field)
	}
}
