package entity

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type stubResolver struct {
	typ     Type
	deps    []Key
	applied []Key
	failOn  map[string]error
}

func (r *stubResolver) EntityType() Type { return r.typ }

func (r *stubResolver) Dependencies(_ context.Context, _ Key) ([]Key, error) {
	return r.deps, nil
}

func (r *stubResolver) Apply(_ context.Context, _ BulkActionType, modelID string) error {
	if err := r.failOn[modelID]; err != nil {
		return err
	}
	r.applied = append(r.applied, NewKey(r.typ, modelID))
	return nil
}

func TestBulkServiceProcess(t *testing.T) {
	instResolver := &stubResolver{typ: TypeInstitution}
	usrResolver := &stubResolver{
		typ:  TypeUser,
		deps: []Key{NewKey(TypeUser, "u1"), NewKey(TypeUser, "u2")},
	}
	nodeResolver := &stubResolver{
		typ:  TypeConfigurationNode,
		deps: []Key{NewKey(TypeConfigurationNode, "5")},
	}

	svc := NewBulkService()
	svc.Register(instResolver)
	svc.Register(usrResolver)
	svc.Register(nodeResolver)

	source := NewKey(TypeInstitution, "1")
	report, err := svc.Process(context.Background(), BulkAction{Type: BulkHardDelete, Source: source})
	assert.NoError(t, err)

	// most dependent types come first
	assert.Equal(t, []Key{
		NewKey(TypeConfigurationNode, "5"),
		NewKey(TypeUser, "u1"),
		NewKey(TypeUser, "u2"),
	}, report.Dependencies)

	// dependencies processed before the source
	assert.Equal(t, []Key{
		NewKey(TypeConfigurationNode, "5"),
		NewKey(TypeUser, "u1"),
		NewKey(TypeUser, "u2"),
		source,
	}, report.Results)
	assert.Empty(t, report.Errors)
	assert.Equal(t, []Key{source}, report.Source)

	assert.Equal(t, []Key{source}, instResolver.applied)
	assert.Len(t, usrResolver.applied, 2)
	assert.Len(t, nodeResolver.applied, 1)
}

func TestBulkServiceProcessPartialFailure(t *testing.T) {
	boom := errors.New("boom")
	usrResolver := &stubResolver{
		typ:    TypeUser,
		deps:   []Key{NewKey(TypeUser, "u1"), NewKey(TypeUser, "u2")},
		failOn: map[string]error{"u1": boom},
	}
	instResolver := &stubResolver{typ: TypeInstitution}

	svc := NewBulkService()
	svc.Register(instResolver)
	svc.Register(usrResolver)

	source := NewKey(TypeInstitution, "1")
	report, err := svc.Process(context.Background(), BulkAction{Type: BulkDeactivate, Source: source})
	assert.NoError(t, err) // dependency failures do not fail the action

	assert.Len(t, report.Errors, 1)
	assert.Equal(t, NewKey(TypeUser, "u1"), report.Errors[0].Key)
	assert.Equal(t, "boom", report.Errors[0].Message)
	assert.Equal(t, []Key{NewKey(TypeUser, "u2"), source}, report.Results)
}

func TestBulkServiceProcessSourceFailure(t *testing.T) {
	boom := errors.New("boom")
	instResolver := &stubResolver{typ: TypeInstitution, failOn: map[string]error{"1": boom}}

	svc := NewBulkService()
	svc.Register(instResolver)

	source := NewKey(TypeInstitution, "1")
	report, err := svc.Process(context.Background(), BulkAction{Type: BulkHardDelete, Source: source})
	assert.Error(t, err)
	assert.Len(t, report.Errors, 1)
	assert.Empty(t, report.Results)
}

func TestBulkServiceProcessUnknownType(t *testing.T) {
	svc := NewBulkService()
	_, err := svc.Process(context.Background(), BulkAction{
		Type:   BulkHardDelete,
		Source: NewKey(TypeConfiguration, "1"),
	})
	assert.Error(t, err)
}
