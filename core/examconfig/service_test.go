package examconfig_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/invigilo/invigilo/core/examconfig"
	inmemdb "github.com/invigilo/invigilo/storage/database/inmem"
)

func setup(t *testing.T) (*examconfig.Service, *inmemdb.DB) {
	t.Helper()
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	db.AddAttribute(examconfig.Attribute{ID: 1, Name: "allowQuit", Type: examconfig.TypeCheckbox, DefaultValue: "true"})
	db.AddAttribute(examconfig.Attribute{ID: 2, Name: "browserViewMode", Type: examconfig.TypeRadioSelection, DefaultValue: "0"})
	db.AddAttribute(examconfig.Attribute{ID: 3, Name: "quitURL", Type: examconfig.TypeTextField})

	svc := examconfig.NewService(
		inmemdb.NewNodeRepository(db),
		inmemdb.NewConfigurationRepository(db),
		inmemdb.NewAttributeRepository(db),
		inmemdb.NewValueRepository(db),
	)
	return svc, db
}

func valuesOf(t *testing.T, svc *examconfig.Service, cfgID int64) map[int64]string {
	t.Helper()
	values, err := svc.Values().ValuesOf(context.Background(), cfgID)
	if err != nil {
		t.Fatalf("ValuesOf() failed: %v", err)
	}
	byAttr := make(map[int64]string, len(values))
	for _, v := range values {
		byAttr[v.AttributeID] = v.Value
	}
	return byAttr
}

func TestServiceCreateNode(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	node, err := svc.CreateNode(ctx, examconfig.NodeMod{
		InstitutionID: 1,
		Name:          "Math Final",
		Type:          examconfig.NodeTypeExamConfig,
		Status:        examconfig.StatusConstruction,
	}, "owner-uuid")
	assert.NoError(t, err)
	assert.Equal(t, "owner-uuid", node.Owner)

	followup, err := svc.Followup(ctx, node.ID)
	assert.NoError(t, err)
	assert.True(t, followup.Followup)
	assert.Equal(t, node.InstitutionID, followup.InstitutionID)

	// attributes with defaults are seeded, the rest are not
	byAttr := valuesOf(t, svc, followup.ID)
	assert.Equal(t, map[int64]string{1: "true", 2: "0"}, byAttr)
}

func TestServiceCreateNodeFromTemplate(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	tmpl, err := svc.CreateNode(ctx, examconfig.NodeMod{
		InstitutionID: 1,
		Name:          "Strict Template",
		Type:          examconfig.NodeTypeTemplate,
	}, "owner-uuid")
	assert.NoError(t, err)

	tmplFollowup, err := svc.Followup(ctx, tmpl.ID)
	assert.NoError(t, err)
	_, err = svc.SaveValue(ctx, examconfig.ValueMod{
		ConfigurationID: tmplFollowup.ID,
		AttributeID:     3,
		Value:           "https://exam.example.org/done",
	})
	assert.NoError(t, err)

	node, err := svc.CreateNode(ctx, examconfig.NodeMod{
		InstitutionID: 1,
		TemplateID:    tmpl.ID,
		Name:          "Math Final",
	}, "owner-uuid")
	assert.NoError(t, err)

	followup, err := svc.Followup(ctx, node.ID)
	assert.NoError(t, err)

	// values come from the template, not the catalog defaults
	byAttr := valuesOf(t, svc, followup.ID)
	assert.Equal(t, "https://exam.example.org/done", byAttr[3])
}

func TestServiceSaveToHistoryAndUndo(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	node, err := svc.CreateNode(ctx, examconfig.NodeMod{InstitutionID: 1, Name: "Math Final"}, "owner-uuid")
	assert.NoError(t, err)

	followup, err := svc.Followup(ctx, node.ID)
	assert.NoError(t, err)

	// first save freezes the followup as v1 and opens a new one
	saved, err := svc.SaveToHistory(ctx, node.ID)
	assert.NoError(t, err)
	assert.Equal(t, "v1", saved.Version)
	assert.False(t, saved.Followup)
	assert.Equal(t, followup.ID, saved.ID)

	newFollowup, err := svc.Followup(ctx, node.ID)
	assert.NoError(t, err)
	assert.NotEqual(t, saved.ID, newFollowup.ID)

	// the new followup carries the saved values
	assert.Equal(t, valuesOf(t, svc, saved.ID), valuesOf(t, svc, newFollowup.ID))

	versions, err := svc.ConfigurationsOf(ctx, node.ID)
	assert.NoError(t, err)
	assert.Len(t, versions, 2)

	// change a value, then undo back to v1
	_, err = svc.SaveValue(ctx, examconfig.ValueMod{
		ConfigurationID: newFollowup.ID,
		AttributeID:     1,
		Value:           "false",
	})
	assert.NoError(t, err)
	assert.Equal(t, "false", valuesOf(t, svc, newFollowup.ID)[1])

	restored, err := svc.Undo(ctx, node.ID)
	assert.NoError(t, err)
	assert.Equal(t, newFollowup.ID, restored.ID)
	assert.Equal(t, "true", valuesOf(t, svc, newFollowup.ID)[1])

	// a second save yields v2
	saved2, err := svc.SaveToHistory(ctx, node.ID)
	assert.NoError(t, err)
	assert.Equal(t, "v2", saved2.Version)
}

func TestServiceUndoWithoutHistory(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	node, err := svc.CreateNode(ctx, examconfig.NodeMod{InstitutionID: 1, Name: "Math Final"}, "owner-uuid")
	assert.NoError(t, err)

	_, err = svc.Undo(ctx, node.ID)
	assert.Equal(t, examconfig.ErrNoHistory, err)
}

func TestServiceSaveToHistoryWithoutFollowup(t *testing.T) {
	svc, _ := setup(t)

	_, err := svc.SaveToHistory(context.Background(), 404)
	assert.Equal(t, examconfig.ErrNoFollowup, err)
}

func TestServiceSaveValueUnknownConfiguration(t *testing.T) {
	svc, _ := setup(t)

	_, err := svc.SaveValue(context.Background(), examconfig.ValueMod{
		ConfigurationID: 404,
		AttributeID:     1,
		Value:           "true",
	})
	assert.Equal(t, examconfig.ErrNotFound, err)
}
