package inmemdb

import (
	"context"
	"sort"

	"github.com/invigilo/invigilo/core"
	"github.com/invigilo/invigilo/core/entity"
	"github.com/invigilo/invigilo/core/institution"
)

type institutionRepository struct {
	db *DB
}

var _ institution.Repository = (*institutionRepository)(nil)

func NewInstitutionRepository(db *DB) institution.Repository {
	return &institutionRepository{db: db}
}

func (repo *institutionRepository) EntityType() entity.Type { return entity.TypeInstitution }

func (repo *institutionRepository) ByModelID(_ context.Context, modelID string) (institution.Institution, error) {
	id, err := parseID(modelID)
	if err != nil {
		return institution.Institution{}, err
	}
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if inst, ok := repo.db.institutions[id]; ok {
		return inst, nil
	}
	return institution.Institution{}, institution.ErrNotFound
}

func (repo *institutionRepository) AllMatching(_ context.Context, filter entity.FilterMap, ords []core.DBOrdering) ([]institution.Institution, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	insts := make([]institution.Institution, 0, len(repo.db.institutions))
	for _, inst := range repo.db.institutions {
		if id := filter.InstitutionID(); id != 0 && inst.ID != id {
			continue
		}
		if active := filter.Active(); active != nil && inst.Active != *active {
			continue
		}
		if name := filter.Name(); name != "" && !containsFold(inst.Name, name) {
			continue
		}
		insts = append(insts, inst)
	}

	asc := true
	for _, ord := range ords {
		if ord.Field == "name" {
			asc = ord.Ascending
		}
	}
	sort.Slice(insts, func(i, j int) bool {
		if asc {
			return insts[i].Name < insts[j].Name
		}
		return insts[i].Name > insts[j].Name
	})
	return insts, nil
}

func (repo *institutionRepository) LoadEntities(ctx context.Context, keys []entity.Key) ([]institution.Institution, error) {
	insts := make([]institution.Institution, 0, len(keys))
	for _, key := range keys {
		if inst, err := repo.ByModelID(ctx, key.ModelID); err == nil {
			insts = append(insts, inst)
		}
	}
	return insts, nil
}

func (repo *institutionRepository) CreateNew(_ context.Context, m institution.Mod) (institution.Institution, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	inst := institution.NewInstitution(m)
	inst.ID = repo.db.nextPK()
	repo.db.institutions[inst.ID] = inst
	return inst, nil
}

func (repo *institutionRepository) Save(ctx context.Context, modelID string, m institution.Mod) (institution.Institution, error) {
	orig, err := repo.ByModelID(ctx, modelID)
	if err != nil {
		return institution.Institution{}, err
	}
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	inst := orig.Apply(m)
	repo.db.institutions[inst.ID] = inst
	return inst, nil
}

func (repo *institutionRepository) SetActive(_ context.Context, modelID string, active bool) (institution.Institution, error) {
	id, err := parseID(modelID)
	if err != nil {
		return institution.Institution{}, err
	}
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	inst, ok := repo.db.institutions[id]
	if !ok {
		return institution.Institution{}, institution.ErrNotFound
	}
	inst.Active = active
	repo.db.institutions[id] = inst
	return inst, nil
}

func (repo *institutionRepository) GetByURLSuffix(_ context.Context, suffix string) (institution.Institution, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	for _, inst := range repo.db.institutions {
		if inst.URLSuffix != "" && inst.URLSuffix == suffix {
			return inst, nil
		}
	}
	return institution.Institution{}, institution.ErrNotFound
}

func (repo *institutionRepository) CheckNameUniqueness(_ context.Context, name string, excluded ...institution.Institution) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
outer:
	for _, inst := range repo.db.institutions {
		if inst.Name != name {
			continue
		}
		for _, excl := range excluded {
			if excl.ID == inst.ID {
				continue outer
			}
		}
		return institution.ErrNameExists
	}
	return nil
}

func (repo *institutionRepository) Delete(_ context.Context, modelID string) error {
	id, err := parseID(modelID)
	if err != nil {
		return err
	}
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.institutions[id]; !ok {
		return institution.ErrNotFound
	}
	delete(repo.db.institutions, id)
	return nil
}
