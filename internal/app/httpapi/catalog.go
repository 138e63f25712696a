package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	catalogsvc "github.com/atlaslab/labmanager/internal/app/services/catalog"
)

func (h *handler) catalogRoutes(r *mux.Router) {
	r.HandleFunc("/departments", h.createDepartment).Methods(http.MethodPost)
	r.HandleFunc("/departments", h.listDepartments).Methods(http.MethodGet)
	r.HandleFunc("/departments/{id:[0-9]+}", h.updateDepartment).Methods(http.MethodPut)
	r.HandleFunc("/departments/{id:[0-9]+}", h.deleteDepartment).Methods(http.MethodDelete)

	r.HandleFunc("/sample-types", h.createSampleType).Methods(http.MethodPost)
	r.HandleFunc("/sample-types", h.listSampleTypes).Methods(http.MethodGet)
	r.HandleFunc("/sample-types/{id:[0-9]+}", h.updateSampleType).Methods(http.MethodPut)
	r.HandleFunc("/sample-types/{id:[0-9]+}", h.deleteSampleType).Methods(http.MethodDelete)

	r.HandleFunc("/test-types", h.createTestType).Methods(http.MethodPost)
	r.HandleFunc("/test-types", h.listTestTypes).Methods(http.MethodGet)
	r.HandleFunc("/test-types/{id:[0-9]+}", h.updateTestType).Methods(http.MethodPut)
	r.HandleFunc("/test-types/{id:[0-9]+}", h.deleteTestType).Methods(http.MethodDelete)
}

type namedPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
}

func (h *handler) createDepartment(w http.ResponseWriter, r *http.Request) {
	var payload namedPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	dep, err := h.app.Catalog.CreateDepartment(r.Context(), payload.Name, payload.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dep)
}

func (h *handler) listDepartments(w http.ResponseWriter, r *http.Request) {
	deps, err := h.app.Catalog.ListDepartments(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deps)
}

func (h *handler) updateDepartment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var payload namedPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	dep, err := h.app.Catalog.UpdateDepartment(r.Context(), id, payload.Name, payload.Description, payload.Active)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dep)
}

func (h *handler) deleteDepartment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.app.Catalog.DeleteDepartment(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) createSampleType(w http.ResponseWriter, r *http.Request) {
	var payload namedPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	st, err := h.app.Catalog.CreateSampleType(r.Context(), payload.Name, payload.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (h *handler) listSampleTypes(w http.ResponseWriter, r *http.Request) {
	sts, err := h.app.Catalog.ListSampleTypes(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sts)
}

func (h *handler) updateSampleType(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var payload namedPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	st, err := h.app.Catalog.UpdateSampleType(r.Context(), id, payload.Name, payload.Description, payload.Active)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handler) deleteSampleType(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.app.Catalog.DeleteSampleType(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type testTypePayload struct {
	Name         string `json:"name"`
	DepartmentID *int64 `json:"department_id"`
	Unit         string `json:"unit"`
	UnitType     string `json:"unit_type"`
	Description  string `json:"description"`
	Active       bool   `json:"active"`
}

func (p testTypePayload) input() catalogsvc.TestTypeInput {
	return catalogsvc.TestTypeInput{
		Name:         p.Name,
		DepartmentID: p.DepartmentID,
		Unit:         p.Unit,
		UnitType:     p.UnitType,
		Description:  p.Description,
		Active:       p.Active,
	}
}

func (h *handler) createTestType(w http.ResponseWriter, r *http.Request) {
	var payload testTypePayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	tt, err := h.app.Catalog.CreateTestType(r.Context(), payload.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tt)
}

func (h *handler) listTestTypes(w http.ResponseWriter, r *http.Request) {
	tts, err := h.app.Catalog.ListTestTypes(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tts)
}

func (h *handler) updateTestType(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var payload testTypePayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	tt, err := h.app.Catalog.UpdateTestType(r.Context(), id, payload.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tt)
}

func (h *handler) deleteTestType(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.app.Catalog.DeleteTestType(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
