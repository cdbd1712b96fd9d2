package convert

import (
	"bytes"
	"context"
	"testing"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/invigilo/invigilo/core/examconfig"
	inmemdb "github.com/invigilo/invigilo/storage/database/inmem"
)

func seedCatalog(t *testing.T, db *inmemdb.DB) {
	t.Helper()
	attrs := []examconfig.Attribute{
		{ID: 1, Name: "allowQuit", Type: examconfig.TypeCheckbox, DefaultValue: "true"},
		{ID: 2, Name: "exitKeys", Type: examconfig.TypeMultiSelection},
		{ID: 3, Name: "hashedQuitPassword", Type: examconfig.TypeTextField},
		{ID: 4, Name: "permittedProcesses", Type: examconfig.TypeTable},
		{ID: 5, ParentID: 4, Name: "permittedProcesses.active", Type: examconfig.TypeCheckbox, DefaultValue: "true"},
		{ID: 6, ParentID: 4, Name: "permittedProcesses.executable", Type: examconfig.TypeTextField},
		{ID: 7, Name: "proxies", Type: examconfig.TypeCompositeTable},
		{ID: 8, ParentID: 7, Name: "proxies.AutoConfigurationEnabled", Type: examconfig.TypeCheckbox, DefaultValue: "false"},
		{ID: 9, Name: "taskDelay", Type: examconfig.TypeInteger, DefaultValue: "500"},
	}
	for _, attr := range attrs {
		db.AddAttribute(attr)
	}
}

func setup(t *testing.T) (*Service, examconfig.ValueRepository, examconfig.Configuration) {
	t.Helper()
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	seedCatalog(t, db)

	attrs := inmemdb.NewAttributeRepository(db)
	values := inmemdb.NewValueRepository(db)
	configs := inmemdb.NewConfigurationRepository(db)

	cfg, err := configs.Create(context.Background(), examconfig.Configuration{
		InstitutionID: 1,
		NodeID:        1,
		Followup:      true,
	})
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	return NewService(attrs, values), values, cfg
}

func saveValue(t *testing.T, values examconfig.ValueRepository, cfg examconfig.Configuration, attrID int64, idx int, val string) {
	t.Helper()
	if _, err := values.Save(context.Background(), examconfig.Value{
		InstitutionID:   cfg.InstitutionID,
		ConfigurationID: cfg.ID,
		AttributeID:     attrID,
		ListIndex:       idx,
		Value:           val,
	}); err != nil {
		t.Fatalf("saveValue() failed: %v", err)
	}
}

func assertEqualDiff(t *testing.T, want, got string) {
	t.Helper()
	if want == got {
		return
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	t.Errorf("export mismatch:\n%s", diff)
}

func seedValues(t *testing.T, values examconfig.ValueRepository, cfg examconfig.Configuration) {
	saveValue(t, values, cfg, 1, 0, "false")
	saveValue(t, values, cfg, 2, 0, "winEnterF10,winEnterF9")
	saveValue(t, values, cfg, 5, 0, "true")
	saveValue(t, values, cfg, 6, 0, "firefox.exe")
	saveValue(t, values, cfg, 5, 1, "false")
	saveValue(t, values, cfg, 6, 1, "calc.exe")
	// no proxies rows: the composite table is omitted
	// no taskDelay row: the default applies
}

func TestExportXML(t *testing.T) {
	svc, values, cfg := setup(t)
	seedValues(t, values, cfg)

	var buf bytes.Buffer
	if err := svc.Export(context.Background(), &buf, FormatXML, cfg); err != nil {
		t.Fatalf("Export() failed: %v", err)
	}

	want := `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">` + "\n" +
		`<plist version="1.0"><dict>` +
		`<key>allowQuit</key><false />` +
		`<key>exitKeys</key><array><string>winEnterF10</string><string>winEnterF9</string></array>` +
		`<key>hashedQuitPassword</key><string></string>` +
		`<key>permittedProcesses</key><array>` +
		`<dict><key>active</key><true /><key>executable</key><string>firefox.exe</string></dict>` +
		`<dict><key>active</key><false /><key>executable</key><string>calc.exe</string></dict>` +
		`</array>` +
		`<key>taskDelay</key><integer>500</integer>` +
		`</dict></plist>`
	assertEqualDiff(t, want, buf.String())
}

func TestExportJSON(t *testing.T) {
	svc, values, cfg := setup(t)
	seedValues(t, values, cfg)

	var buf bytes.Buffer
	if err := svc.Export(context.Background(), &buf, FormatJSON, cfg); err != nil {
		t.Fatalf("Export() failed: %v", err)
	}

	want := `{` +
		`"allowQuit":false,` +
		`"exitKeys":["winEnterF10","winEnterF9"],` +
		`"hashedQuitPassword":"",` +
		`"permittedProcesses":[` +
		`{"active":true,"executable":"firefox.exe"},` +
		`{"active":false,"executable":"calc.exe"}` +
		`],` +
		`"taskDelay":500` +
		`}`
	assertEqualDiff(t, want, buf.String())
}

func TestExportEmptyConfiguration(t *testing.T) {
	svc, _, cfg := setup(t)

	var buf bytes.Buffer
	if err := svc.Export(context.Background(), &buf, FormatXML, cfg); err != nil {
		t.Fatalf("Export() failed: %v", err)
	}

	// defaults apply; empty tables render as empty arrays and the
	// composite table disappears
	want := `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">` + "\n" +
		`<plist version="1.0"><dict>` +
		`<key>allowQuit</key><true />` +
		`<key>exitKeys</key><array />` +
		`<key>hashedQuitPassword</key><string></string>` +
		`<key>permittedProcesses</key><array />` +
		`<key>taskDelay</key><integer>500</integer>` +
		`</dict></plist>`
	assertEqualDiff(t, want, buf.String())

	buf.Reset()
	if err := svc.Export(context.Background(), &buf, FormatJSON, cfg); err != nil {
		t.Fatalf("Export() failed: %v", err)
	}
	wantJSON := `{"allowQuit":true,"exitKeys":[],"hashedQuitPassword":"","permittedProcesses":[],"taskDelay":500}`
	assertEqualDiff(t, wantJSON, buf.String())
}

func TestExportCompositeTableWithValues(t *testing.T) {
	svc, values, cfg := setup(t)
	saveValue(t, values, cfg, 8, 0, "true")

	var buf bytes.Buffer
	if err := svc.Export(context.Background(), &buf, FormatJSON, cfg); err != nil {
		t.Fatalf("Export() failed: %v", err)
	}

	want := `{` +
		`"allowQuit":true,` +
		`"exitKeys":[],` +
		`"hashedQuitPassword":"",` +
		`"permittedProcesses":[],` +
		`"proxies":{"AutoConfigurationEnabled":true},` +
		`"taskDelay":500` +
		`}`
	assertEqualDiff(t, want, buf.String())
}
