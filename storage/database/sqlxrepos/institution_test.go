package sqlxrepos

import (
	"context"
	"net/url"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/invigilo/invigilo/core/entity"
	"github.com/invigilo/invigilo/core/institution"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock.New() failed: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		mockDB.Close()
	})
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func institutionRows(insts ...institution.Institution) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "name", "url_suffix", "logo_image", "theme_name", "active"})
	for _, inst := range insts {
		rows.AddRow(inst.ID, inst.Name, inst.URLSuffix, inst.LogoImage, inst.ThemeName, inst.Active)
	}
	return rows
}

func TestInstitutionRepositoryByModelID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInstitutionRepository(db)

	want := institution.Institution{ID: 1, Name: "ETH Zurich", URLSuffix: "ethz", Active: true}
	mock.ExpectQuery("SELECT id, name, url_suffix, logo_image, theme_name, active FROM institution WHERE id = $1").
		WithArgs(int64(1)).
		WillReturnRows(institutionRows(want))

	inst, err := repo.ByModelID(context.Background(), "1")
	assert.NoError(t, err)
	assert.Equal(t, want, inst)

	mock.ExpectQuery("SELECT id, name, url_suffix, logo_image, theme_name, active FROM institution WHERE id = $1").
		WithArgs(int64(404)).
		WillReturnRows(institutionRows())

	_, err = repo.ByModelID(context.Background(), "404")
	assert.Equal(t, entity.ErrNotFound, err)

	// malformed ids never reach the database
	_, err = repo.ByModelID(context.Background(), "not-a-number")
	assert.Equal(t, entity.ErrNotFound, err)
}

func TestInstitutionRepositoryAllMatching(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInstitutionRepository(db)

	mock.ExpectQuery("SELECT id, name, url_suffix, logo_image, theme_name, active FROM institution ORDER BY name ASC").
		WillReturnRows(institutionRows(
			institution.Institution{ID: 1, Name: "ETH Zurich", Active: true},
			institution.Institution{ID: 2, Name: "Uni Basel", Active: true},
		))

	insts, err := repo.AllMatching(context.Background(), entity.FilterMap{}, nil)
	assert.NoError(t, err)
	assert.Len(t, insts, 2)

	params := url.Values{}
	params.Set("active", "true")
	params.Set("name", "eth")
	mock.ExpectQuery("SELECT id, name, url_suffix, logo_image, theme_name, active FROM institution"+
		" WHERE active = $1 AND name ILIKE $2 ORDER BY name ASC").
		WithArgs(true, "%eth%").
		WillReturnRows(institutionRows(institution.Institution{ID: 1, Name: "ETH Zurich", Active: true}))

	insts, err = repo.AllMatching(context.Background(), entity.FilterMapOf(params), nil)
	assert.NoError(t, err)
	assert.Len(t, insts, 1)
}

func TestInstitutionRepositoryCreateNew(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInstitutionRepository(db)

	mock.ExpectQuery(`INSERT INTO institution (name, url_suffix, logo_image, theme_name, active)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`).
		WithArgs("ETH Zurich", "ethz", "", "", true).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	inst, err := repo.CreateNew(context.Background(), institution.Mod{Name: "ETH Zurich", URLSuffix: "ethz"})
	assert.NoError(t, err)
	assert.Equal(t, int64(7), inst.ID)
	assert.True(t, inst.Active)
}

func TestInstitutionRepositorySetActive(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInstitutionRepository(db)

	mock.ExpectQuery("UPDATE institution SET active = $2 WHERE id = $1 RETURNING id, name, url_suffix, logo_image, theme_name, active").
		WithArgs(int64(1), false).
		WillReturnRows(institutionRows(institution.Institution{ID: 1, Name: "ETH Zurich", Active: false}))

	inst, err := repo.SetActive(context.Background(), "1", false)
	assert.NoError(t, err)
	assert.False(t, inst.Active)
}

func TestInstitutionRepositoryCheckNameUniqueness(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInstitutionRepository(db)

	existsQuery := "SELECT EXISTS (SELECT 1 FROM institution WHERE name = $1 AND NOT (id = ANY($2)))"

	mock.ExpectQuery(existsQuery).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	err := repo.CheckNameUniqueness(context.Background(), "ETH Zurich")
	assert.Equal(t, institution.ErrNameExists, err)

	mock.ExpectQuery(existsQuery).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	err = repo.CheckNameUniqueness(context.Background(), "Uni Basel")
	assert.NoError(t, err)
}

func TestInstitutionRepositoryDelete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInstitutionRepository(db)

	mock.ExpectExec("DELETE FROM institution WHERE id = $1").
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.Delete(context.Background(), "1"))

	mock.ExpectExec("DELETE FROM institution WHERE id = $1").
		WithArgs(int64(404)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.Equal(t, institution.ErrNotFound, repo.Delete(context.Background(), "404"))
}
