package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	app "github.com/atlaslab/labmanager/internal/app"
	"github.com/atlaslab/labmanager/internal/app/domain/identity"
	"github.com/atlaslab/labmanager/internal/middleware"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	application, err := app.New(app.Options{}, nil)
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	return NewHandler(application)
}

func analyst() identity.Actor {
	return identity.Actor{UserID: 10, Role: identity.RoleLabAnalyst}
}

func manager() identity.Actor {
	return identity.Actor{UserID: 11, Role: identity.RoleLabManager}
}

// do issues a request as the given actor and decodes the JSON reply
// into out when it is non-nil.
func do(t *testing.T, h http.Handler, method, path string, body interface{}, act *identity.Actor, out interface{}) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if act != nil {
		req = req.WithContext(middleware.WithActor(req.Context(), *act))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: decode response %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(t)
	if code := do(t, h, http.MethodGet, "/healthz", nil, nil, nil); code != http.StatusOK {
		t.Fatalf("healthz = %d", code)
	}
}

func TestUsersRequireAdminRole(t *testing.T) {
	h := newTestHandler(t)

	act := analyst()
	if code := do(t, h, http.MethodGet, "/users", nil, &act, nil); code != http.StatusForbidden {
		t.Fatalf("analyst list users = %d, want 403", code)
	}
	if code := do(t, h, http.MethodGet, "/users", nil, nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("anonymous list users = %d, want 401", code)
	}

	admin := identity.Actor{UserID: 1, Role: identity.RoleLabAdministrator}
	if code := do(t, h, http.MethodGet, "/users", nil, &admin, nil); code != http.StatusOK {
		t.Fatalf("admin list users = %d, want 200", code)
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	h := newTestHandler(t)
	act := analyst()
	code := do(t, h, http.MethodPost, "/customers",
		map[string]interface{}{"name": "Acme", "bogus": true}, &act, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("unknown field = %d, want 400", code)
	}
}

// TestSampleLifecycle walks the full flow: master data, sample intake,
// result entry, commit, reason-gated amendment, report generation,
// validation and key-gated public access.
func TestSampleLifecycle(t *testing.T) {
	h := newTestHandler(t)
	lab := analyst()
	mgr := manager()

	// master data
	var cust struct {
		ID   int64  `json:"id"`
		Code string `json:"code"`
	}
	if code := do(t, h, http.MethodPost, "/customers", map[string]interface{}{"name": "River Analytics"}, &lab, &cust); code != http.StatusCreated {
		t.Fatalf("create customer = %d", code)
	}
	if len(cust.Code) != 5 {
		t.Fatalf("customer code = %q", cust.Code)
	}

	var dep struct {
		ID int64 `json:"id"`
	}
	if code := do(t, h, http.MethodPost, "/departments", map[string]interface{}{"name": "Chemistry"}, &lab, &dep); code != http.StatusCreated {
		t.Fatalf("create department = %d", code)
	}
	var st struct {
		ID int64 `json:"id"`
	}
	if code := do(t, h, http.MethodPost, "/sample-types", map[string]interface{}{"name": "water"}, &lab, &st); code != http.StatusCreated {
		t.Fatalf("create sample type = %d", code)
	}
	var tt struct {
		ID int64 `json:"id"`
	}
	if code := do(t, h, http.MethodPost, "/test-types", map[string]interface{}{
		"name": "pH", "department_id": dep.ID, "unit": "pH units", "active": true,
	}, &lab, &tt); code != http.StatusCreated {
		t.Fatalf("create test type = %d", code)
	}

	// sample intake
	var sm struct {
		ID     int64  `json:"id"`
		Code   string `json:"code"`
		Status string `json:"status"`
	}
	if code := do(t, h, http.MethodPost, "/samples", map[string]interface{}{
		"name": "well 3", "customer_id": cust.ID, "sample_type_id": st.ID,
		"department_ids": []int64{dep.ID},
	}, &lab, &sm); code != http.StatusCreated {
		t.Fatalf("create sample = %d", code)
	}
	if len(sm.Code) != 10 || sm.Status != "pending" {
		t.Fatalf("sample = %+v", sm)
	}

	// result sheet
	var entry struct {
		ID int64 `json:"id"`
	}
	if code := do(t, h, http.MethodPost, fmt.Sprintf("/samples/%d/results", sm.ID), nil, &lab, &entry); code != http.StatusCreated {
		t.Fatalf("create sheet = %d", code)
	}

	// committing an empty sheet is rejected
	if code := do(t, h, http.MethodPost, fmt.Sprintf("/results/%d/commit", entry.ID), nil, &lab, nil); code != http.StatusUnprocessableEntity {
		t.Fatalf("empty commit = %d, want 422", code)
	}

	var val struct {
		ID int64 `json:"id"`
	}
	if code := do(t, h, http.MethodPost, fmt.Sprintf("/results/%d/values", entry.ID), map[string]interface{}{
		"test_type_id": tt.ID, "value": "7.2",
	}, &lab, &val); code != http.StatusCreated {
		t.Fatalf("add value = %d", code)
	}
	if code := do(t, h, http.MethodPost, fmt.Sprintf("/results/%d/commit", entry.ID), nil, &lab, nil); code != http.StatusOK {
		t.Fatalf("commit = %d", code)
	}

	// post-commit additions need an elevated role and a reason
	if code := do(t, h, http.MethodPost, fmt.Sprintf("/results/%d/values", entry.ID), map[string]interface{}{
		"test_type_id": tt.ID, "value": "7.3", "reason": "late reading",
	}, &lab, nil); code != http.StatusForbidden {
		t.Fatalf("analyst post-commit add = %d, want 403", code)
	}
	if code := do(t, h, http.MethodPost, fmt.Sprintf("/results/%d/values", entry.ID), map[string]interface{}{
		"test_type_id": tt.ID, "value": "7.3",
	}, &mgr, nil); code != http.StatusUnprocessableEntity {
		t.Fatalf("reasonless post-commit add = %d, want 422", code)
	}
	if code := do(t, h, http.MethodPost, fmt.Sprintf("/results/%d/values", entry.ID), map[string]interface{}{
		"test_type_id": tt.ID, "value": "7.3", "reason": "late reading",
	}, &mgr, nil); code != http.StatusCreated {
		t.Fatalf("manager post-commit add = %d, want 201", code)
	}

	// report lifecycle
	var rep struct {
		ID          int64  `json:"id"`
		Number      string `json:"report_number"`
		Status      string `json:"status"`
		Fingerprint string `json:"fingerprint"`
	}
	if code := do(t, h, http.MethodPost, fmt.Sprintf("/results/%d/reports", entry.ID), nil, &lab, &rep); code != http.StatusCreated {
		t.Fatalf("generate report = %d", code)
	}
	if rep.Status != "proposed" || len(rep.Fingerprint) != 64 {
		t.Fatalf("report = %+v", rep)
	}

	// view keys exist only for finalized reports
	if code := do(t, h, http.MethodPost, fmt.Sprintf("/reports/%d/view-key", rep.ID), nil, &lab, nil); code != http.StatusConflict {
		t.Fatalf("proposed view key = %d, want 409", code)
	}

	if code := do(t, h, http.MethodPost, fmt.Sprintf("/reports/%d/validate", rep.ID), nil, &lab, nil); code != http.StatusForbidden {
		t.Fatalf("analyst validate = %d, want 403", code)
	}
	if code := do(t, h, http.MethodDelete, fmt.Sprintf("/reports/%d", rep.ID), nil, &lab, nil); code != http.StatusForbidden {
		t.Fatalf("analyst report delete = %d, want 403", code)
	}
	var validated struct {
		Status string `json:"status"`
	}
	if code := do(t, h, http.MethodPost, fmt.Sprintf("/reports/%d/validate", rep.ID), nil, &mgr, &validated); code != http.StatusOK {
		t.Fatalf("manager validate = %d", code)
	}
	if validated.Status != "finalized" {
		t.Fatalf("validated status = %s, want finalized", validated.Status)
	}

	var keyResp struct {
		ViewKey string `json:"view_key"`
	}
	if code := do(t, h, http.MethodPost, fmt.Sprintf("/reports/%d/view-key", rep.ID), nil, &mgr, &keyResp); code != http.StatusOK {
		t.Fatalf("issue view key = %d", code)
	}
	if len(keyResp.ViewKey) != 43 {
		t.Fatalf("view key length = %d", len(keyResp.ViewKey))
	}

	// public access requires the exact (code, key) pair
	var public struct {
		ReportNumber string `json:"report_number"`
		Fingerprint  string `json:"fingerprint"`
	}
	path := fmt.Sprintf("/public/reports/%s?key=%s", sm.Code, keyResp.ViewKey)
	if code := do(t, h, http.MethodGet, path, nil, nil, &public); code != http.StatusOK {
		t.Fatalf("public fetch = %d", code)
	}
	if public.ReportNumber != rep.Number || public.Fingerprint != rep.Fingerprint {
		t.Fatalf("public view = %+v, report = %+v", public, rep)
	}

	if code := do(t, h, http.MethodGet, fmt.Sprintf("/public/reports/%s?key=wrong", sm.Code), nil, nil, nil); code != http.StatusNotFound {
		t.Fatalf("wrong key = %d, want 404", code)
	}
	if code := do(t, h, http.MethodGet, fmt.Sprintf("/public/reports/XXXXXXXXXX?key=%s", keyResp.ViewKey), nil, nil, nil); code != http.StatusNotFound {
		t.Fatalf("wrong code = %d, want 404", code)
	}

	// the sample's ledger recorded the whole history
	var acts []struct {
		Type string `json:"type"`
	}
	if code := do(t, h, http.MethodGet, fmt.Sprintf("/samples/%d/activities", sm.ID), nil, &lab, &acts); code != http.StatusOK {
		t.Fatalf("activities = %d", code)
	}
	if len(acts) < 4 {
		t.Fatalf("expected a populated ledger, got %d entries", len(acts))
	}
}

func TestSearchEndpoints(t *testing.T) {
	h := newTestHandler(t)
	lab := analyst()

	var cust struct {
		ID int64 `json:"id"`
	}
	if code := do(t, h, http.MethodPost, "/customers", map[string]interface{}{"name": "Riverside Labs"}, &lab, &cust); code != http.StatusCreated {
		t.Fatalf("create customer = %d", code)
	}

	var hits []struct {
		ID int64 `json:"id"`
	}
	if code := do(t, h, http.MethodGet, "/customers/search?q=riversde", nil, &lab, &hits); code != http.StatusOK {
		t.Fatalf("search = %d", code)
	}
	if len(hits) != 1 || hits[0].ID != cust.ID {
		t.Fatalf("fuzzy search hits = %+v", hits)
	}

	var proj struct {
		ID int64 `json:"id"`
	}
	body := map[string]interface{}{"customer_id": cust.ID, "name": "Discharge Monitoring"}
	if code := do(t, h, http.MethodPost, "/projects", body, &lab, &proj); code != http.StatusCreated {
		t.Fatalf("create project = %d", code)
	}
	var projHits []struct {
		ID int64 `json:"id"`
	}
	if code := do(t, h, http.MethodGet, "/projects/search?q=dischrge", nil, &lab, &projHits); code != http.StatusOK {
		t.Fatalf("project search = %d", code)
	}
	if len(projHits) != 1 || projHits[0].ID != proj.ID {
		t.Fatalf("project search hits = %+v", projHits)
	}
}
