package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/invigilo/invigilo/core/authz"
	"github.com/invigilo/invigilo/core/entity"
	"github.com/invigilo/invigilo/core/institution"
)

const institutionsPath = "/admin-api/v1/institutions"

func TestInstitutionCreate(t *testing.T) {
	env := setup(t)
	inst := env.createInstitution(t, "ETH Zurich", "ethz")
	sadmin := env.createUser(t, inst.ID, "Server Admin", "sadmin", "Secr3tPwd!", []string{authz.RoleServerAdmin})
	iadmin := env.createUser(t, inst.ID, "Inst Admin", "iadmin", "Secr3tPwd!", []string{authz.RoleInstitutionAdmin})

	tests := []httpTest{
		{
			name:     "server admin creates",
			token:    getToken(t, sadmin),
			body:     marchallObj(t, institution.Mod{Name: "Uni Basel", URLSuffix: "unibas"}),
			wantCode: http.StatusCreated,
		},
		{
			name:     "institution admin cannot create",
			token:    getToken(t, iadmin),
			body:     marchallObj(t, institution.Mod{Name: "Uni Bern", URLSuffix: "unibe"}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "duplicate name",
			token:    getToken(t, sadmin),
			body:     marchallObj(t, institution.Mod{Name: "ETH Zurich"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing name",
			token:    getToken(t, sadmin),
			body:     marchallObj(t, institution.Mod{URLSuffix: "anon"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing token",
			body:     marchallObj(t, institution.Mod{Name: "Uni Geneva"}),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, institutionsPath, tt.token, tt.body)
			env.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusCreated {
				var created institution.Institution
				assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
				assert.NotZero(t, created.ID)
				assert.True(t, created.Active)
			}
		})
	}
}

func TestInstitutionUpdate(t *testing.T) {
	env := setup(t)
	inst := env.createInstitution(t, "ETH Zurich", "ethz")
	other := env.createInstitution(t, "Uni Basel", "unibas")
	iadmin := env.createUser(t, inst.ID, "Inst Admin", "iadmin", "Secr3tPwd!", []string{authz.RoleInstitutionAdmin})

	tests := []httpTest{
		{
			name:     "institution admin modifies own institution",
			token:    getToken(t, iadmin),
			path:     institutionsPath + "/" + inst.ModelID(),
			body:     marchallObj(t, institution.Mod{Name: "ETH Zurich", ThemeName: "dark"}),
			wantCode: http.StatusOK,
		},
		{
			name:     "institution admin cannot modify another institution",
			token:    getToken(t, iadmin),
			path:     institutionsPath + "/" + other.ModelID(),
			body:     marchallObj(t, institution.Mod{Name: "Uni Basel", ThemeName: "dark"}),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "unknown institution",
			token:    getToken(t, iadmin),
			path:     institutionsPath + "/404",
			body:     marchallObj(t, institution.Mod{Name: "Ghost"}),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPut, tt.path, tt.token, tt.body)
			env.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var updated institution.Institution
				assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
				assert.Equal(t, "dark", updated.ThemeName)
			}
		})
	}
}

func TestInstitutionDeactivateCascades(t *testing.T) {
	env := setup(t)
	inst := env.createInstitution(t, "ETH Zurich", "ethz")
	doomed := env.createInstitution(t, "Uni Basel", "unibas")
	sadmin := env.createUser(t, inst.ID, "Server Admin", "sadmin", "Secr3tPwd!", []string{authz.RoleServerAdmin})
	member := env.createUser(t, doomed.ID, "Member", "member", "Secr3tPwd!", []string{authz.RoleExamAdmin})

	req, rec := newAuthRequest(http.MethodPost, institutionsPath+"/"+doomed.ModelID()+"/deactivate", getToken(t, sadmin))
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report entity.ProcessingReport
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, []entity.Key{entity.NewKey(entity.TypeInstitution, doomed.ModelID())}, report.Source)
	assert.Contains(t, report.Dependencies, entity.NewKey(entity.TypeUser, member.UUID))
	assert.Empty(t, report.Errors)

	// the member can no longer log in
	req, rec = newRequest(http.MethodPost, usersPath+"/login",
		marchallObj(t, LoginRequest{Username: member.Username, Password: "Secr3tPwd!"}))
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// reactivation restores access
	req, rec = newAuthRequest(http.MethodPost, institutionsPath+"/"+doomed.ModelID()+"/activate", getToken(t, sadmin))
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req, rec = newRequest(http.MethodPost, usersPath+"/login",
		marchallObj(t, LoginRequest{Username: member.Username, Password: "Secr3tPwd!"}))
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestInstitutionDeleteCascades(t *testing.T) {
	env := setup(t)
	inst := env.createInstitution(t, "ETH Zurich", "ethz")
	doomed := env.createInstitution(t, "Uni Basel", "unibas")
	sadmin := env.createUser(t, inst.ID, "Server Admin", "sadmin", "Secr3tPwd!", []string{authz.RoleServerAdmin})
	member := env.createUser(t, doomed.ID, "Member", "member", "Secr3tPwd!", []string{authz.RoleExamAdmin})
	node := env.createNode(t, doomed.ID, member.UUID, "Math Final")

	req, rec := newAuthRequest(http.MethodDelete, institutionsPath+"/"+doomed.ModelID(), getToken(t, sadmin))
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report entity.ProcessingReport
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Contains(t, report.Dependencies, entity.NewKey(entity.TypeUser, member.UUID))
	assert.Contains(t, report.Dependencies, entity.NewKey(entity.TypeConfigurationNode, node.ModelID()))
	assert.Contains(t, report.Results, entity.NewKey(entity.TypeInstitution, doomed.ModelID()))
	assert.Empty(t, report.Errors)

	// everything is gone
	req, rec = newAuthRequest(http.MethodGet, institutionsPath+"/"+doomed.ModelID(), getToken(t, sadmin))
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req, rec = newAuthRequest(http.MethodGet, usersPath+"/"+member.UUID, getToken(t, sadmin))
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInstitutionGetForIDs(t *testing.T) {
	env := setup(t)
	inst1 := env.createInstitution(t, "ETH Zurich", "ethz")
	inst2 := env.createInstitution(t, "Uni Basel", "unibas")
	env.createInstitution(t, "Uni Bern", "unibe")
	sadmin := env.createUser(t, inst1.ID, "Server Admin", "sadmin", "Secr3tPwd!", []string{authz.RoleServerAdmin})

	path := institutionsPath + "/list?ids=" + inst1.ModelID() + "," + inst2.ModelID()
	req, rec := newAuthRequest(http.MethodGet, path, getToken(t, sadmin))
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var insts []institution.Institution
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &insts))
	assert.Len(t, insts, 2)
}

func TestInfoLogo(t *testing.T) {
	env := setup(t)
	inst := env.createInstitution(t, "ETH Zurich", "ethz")
	hidden := env.createInstitution(t, "Uni Basel", "unibas")
	if _, err := env.instSvc.Repo().SetActive(context.Background(), hidden.ModelID(), false); err != nil {
		t.Fatalf("SetActive() failed: %v", err)
	}

	tests := []httpTest{
		{
			name:     "known suffix",
			path:     "/admin-api/v1/info/logo/ethz",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, LogoResponse{InstitutionID: inst.ID}),
		},
		{
			name:     "unknown suffix",
			path:     "/admin-api/v1/info/logo/nope",
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name:     "inactive institution",
			path:     "/admin-api/v1/info/logo/unibas",
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, tt.path)
			env.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestInfoPrivileges(t *testing.T) {
	env := setup(t)
	inst := env.createInstitution(t, "ETH Zurich", "ethz")
	usr := env.createUser(t, inst.ID, "Jane Doe", "jdoe", "Secr3tPwd!", []string{authz.RoleExamAdmin})

	req, rec := newRequest(http.MethodGet, "/admin-api/v1/info/privileges")
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req, rec = newAuthRequest(http.MethodGet, "/admin-api/v1/info/privileges", getToken(t, usr))
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Body.String())
}
