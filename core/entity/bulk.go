package entity

import (
	"context"

	"github.com/pkg/errors"
)

// BulkActionType enumerates the cascading actions of the system.
type BulkActionType string

const (
	BulkHardDelete BulkActionType = "HARD_DELETE"
	BulkActivate   BulkActionType = "ACTIVATE"
	BulkDeactivate BulkActionType = "DEACTIVATE"
)

// BulkAction is a cascading action rooted at a source entity.
type BulkAction struct {
	Type   BulkActionType
	Source Key
}

// ErrorEntry reports a per-entity failure within a bulk action.
type ErrorEntry struct {
	Key     Key    `json:"entity_key"`
	Message string `json:"message"`
}

// ProcessingReport is the result of a processed bulk action: the source
// keys, the dependency keys that were included, the keys the action was
// successfully applied to, and per-key errors. Partial failures are
// reported, not rolled back.
type ProcessingReport struct {
	Source       []Key        `json:"source"`
	Dependencies []Key        `json:"dependencies"`
	Results      []Key        `json:"results"`
	Errors       []ErrorEntry `json:"errors"`
}

func newProcessingReport(source Key) *ProcessingReport {
	return &ProcessingReport{
		Source:       []Key{source},
		Dependencies: []Key{},
		Results:      []Key{},
		Errors:       []ErrorEntry{},
	}
}

// Resolver is implemented per entity type to take part in bulk actions.
// Dependencies reports the keys of this resolver's type that depend on
// the given key; Apply executes the action on one entity of this type.
type Resolver interface {
	EntityType() Type
	Dependencies(ctx context.Context, key Key) ([]Key, error)
	Apply(ctx context.Context, action BulkActionType, modelID string) error
}

// BulkService processes bulk actions across all registered resolvers,
// dependencies first, and collects the processing report.
type BulkService struct {
	resolvers map[Type]Resolver
	// deletion/deactivation order: dependents before their sources
	order []Type
}

func NewBulkService() *BulkService {
	return &BulkService{resolvers: make(map[Type]Resolver)}
}

// Register adds a resolver. Registration order defines reverse
// application order: entities registered later depend on earlier ones
// and are processed first.
func (s *BulkService) Register(r Resolver) {
	s.resolvers[r.EntityType()] = r
	s.order = append(s.order, r.EntityType())
}

// Process applies the action to all dependencies of the source and then
// to the source itself, returning the full report. The returned error is
// non-nil only when the source itself could not be processed.
func (s *BulkService) Process(ctx context.Context, action BulkAction) (*ProcessingReport, error) {
	report := newProcessingReport(action.Source)

	// collect dependency keys, most dependent types first
	for i := len(s.order) - 1; i >= 0; i-- {
		r := s.resolvers[s.order[i]]
		if r.EntityType() == action.Source.Type {
			continue
		}
		deps, err := r.Dependencies(ctx, action.Source)
		if err != nil {
			return report, errors.Wrapf(err, "resolving %s dependencies", r.EntityType())
		}
		report.Dependencies = append(report.Dependencies, deps...)
	}

	for _, key := range report.Dependencies {
		r, ok := s.resolvers[key.Type]
		if !ok {
			continue
		}
		if err := r.Apply(ctx, action.Type, key.ModelID); err != nil {
			report.Errors = append(report.Errors, ErrorEntry{Key: key, Message: err.Error()})
			continue
		}
		report.Results = append(report.Results, key)
	}

	src, ok := s.resolvers[action.Source.Type]
	if !ok {
		return report, errors.Errorf("no resolver registered for %s", action.Source.Type)
	}
	if err := src.Apply(ctx, action.Type, action.Source.ModelID); err != nil {
		report.Errors = append(report.Errors, ErrorEntry{Key: action.Source, Message: err.Error()})
		return report, err
	}
	report.Results = append(report.Results, action.Source)
	return report, nil
}
