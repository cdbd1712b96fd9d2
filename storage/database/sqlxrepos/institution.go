package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/invigilo/invigilo/core"
	"github.com/invigilo/invigilo/core/entity"
	"github.com/invigilo/invigilo/core/institution"
)

const institutionCols = "id, name, url_suffix, logo_image, theme_name, active"

var institutionOrderings = map[string]string{
	"id":     "id",
	"name":   "name",
	"active": "active",
}

type institutionRepository struct {
	db *sqlx.DB
}

var _ institution.Repository = (*institutionRepository)(nil)

func NewInstitutionRepository(db *sqlx.DB) institution.Repository {
	return &institutionRepository{db: db}
}

func (repo *institutionRepository) EntityType() entity.Type { return entity.TypeInstitution }

func (repo *institutionRepository) ByModelID(ctx context.Context, modelID string) (institution.Institution, error) {
	id, err := parseID(modelID)
	if err != nil {
		return institution.Institution{}, err
	}
	var inst institution.Institution
	err = repo.db.GetContext(ctx, &inst, "SELECT "+institutionCols+" FROM institution WHERE id = $1", id)
	return inst, notFoundErr(err)
}

func (repo *institutionRepository) AllMatching(ctx context.Context, filter entity.FilterMap, ords []core.DBOrdering) ([]institution.Institution, error) {
	cond := new(conditions)
	if id := filter.InstitutionID(); id != 0 {
		cond.add("id = $%d", id)
	}
	if active := filter.Active(); active != nil {
		cond.add("active = $%d", *active)
	}
	if name := filter.Name(); name != "" {
		cond.add("name ILIKE $%d", "%"+name+"%")
	}

	q := "SELECT " + institutionCols + " FROM institution" + cond.where() +
		orderClause(ords, institutionOrderings, "name ASC")
	insts := make([]institution.Institution, 0)
	err := repo.db.SelectContext(ctx, &insts, q, cond.args...)
	return insts, err
}

func (repo *institutionRepository) LoadEntities(ctx context.Context, keys []entity.Key) ([]institution.Institution, error) {
	ids := make([]int64, 0, len(keys))
	for _, key := range keys {
		if id, err := parseID(key.ModelID); err == nil {
			ids = append(ids, id)
		}
	}
	insts := make([]institution.Institution, 0, len(ids))
	err := repo.db.SelectContext(ctx, &insts,
		"SELECT "+institutionCols+" FROM institution WHERE id = ANY($1) ORDER BY name", pq.Array(ids))
	return insts, err
}

func (repo *institutionRepository) CreateNew(ctx context.Context, m institution.Mod) (institution.Institution, error) {
	inst := institution.NewInstitution(m)
	err := repo.db.GetContext(ctx, &inst.ID,
		`INSERT INTO institution (name, url_suffix, logo_image, theme_name, active)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		inst.Name, inst.URLSuffix, inst.LogoImage, inst.ThemeName, inst.Active)
	return inst, errors.Wrap(err, "inserting institution")
}

func (repo *institutionRepository) Save(ctx context.Context, modelID string, m institution.Mod) (institution.Institution, error) {
	orig, err := repo.ByModelID(ctx, modelID)
	if err != nil {
		return institution.Institution{}, err
	}
	inst := orig.Apply(m)
	_, err = repo.db.ExecContext(ctx,
		`UPDATE institution SET name = $2, url_suffix = $3, logo_image = $4, theme_name = $5 WHERE id = $1`,
		inst.ID, inst.Name, inst.URLSuffix, inst.LogoImage, inst.ThemeName)
	return inst, errors.Wrap(err, "updating institution")
}

func (repo *institutionRepository) SetActive(ctx context.Context, modelID string, active bool) (institution.Institution, error) {
	id, err := parseID(modelID)
	if err != nil {
		return institution.Institution{}, err
	}
	var inst institution.Institution
	err = repo.db.GetContext(ctx, &inst,
		"UPDATE institution SET active = $2 WHERE id = $1 RETURNING "+institutionCols, id, active)
	return inst, notFoundErr(err)
}

func (repo *institutionRepository) GetByURLSuffix(ctx context.Context, suffix string) (institution.Institution, error) {
	var inst institution.Institution
	err := repo.db.GetContext(ctx, &inst,
		"SELECT "+institutionCols+" FROM institution WHERE url_suffix = $1 AND url_suffix <> ''", suffix)
	return inst, notFoundErr(err)
}

func (repo *institutionRepository) CheckNameUniqueness(ctx context.Context, name string, excluded ...institution.Institution) error {
	excludedIDs := make([]int64, 0, len(excluded))
	for _, inst := range excluded {
		excludedIDs = append(excludedIDs, inst.ID)
	}
	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		"SELECT EXISTS (SELECT 1 FROM institution WHERE name = $1 AND NOT (id = ANY($2)))",
		name, pq.Array(excludedIDs))
	if err != nil {
		return errors.Wrap(err, "checking institution name")
	}
	if exists {
		return institution.ErrNameExists
	}
	return nil
}

func (repo *institutionRepository) Delete(ctx context.Context, modelID string) error {
	id, err := parseID(modelID)
	if err != nil {
		return err
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM institution WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting institution")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return institution.ErrNotFound
	}
	return nil
}
