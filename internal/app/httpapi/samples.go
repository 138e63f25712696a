package httpapi

import (
	"net/http"
	"strconv"

	samplesvc "github.com/atlaslab/labmanager/internal/app/services/samples"
	"github.com/atlaslab/labmanager/internal/errors"
)

type samplePayload struct {
	Name          string  `json:"name"`
	CustomerID    int64   `json:"customer_id"`
	ProjectID     *int64  `json:"project_id"`
	SampleTypeID  int64   `json:"sample_type_id"`
	DepartmentIDs []int64 `json:"department_ids"`
	TestTypeIDs   []int64 `json:"test_type_ids"`
	Status        string  `json:"status"`
	Description   string  `json:"description"`
}

func (p samplePayload) input() samplesvc.Input {
	return samplesvc.Input{
		Name:          p.Name,
		CustomerID:    p.CustomerID,
		ProjectID:     p.ProjectID,
		SampleTypeID:  p.SampleTypeID,
		DepartmentIDs: p.DepartmentIDs,
		TestTypeIDs:   p.TestTypeIDs,
		Status:        p.Status,
		Description:   p.Description,
	}
}

func (h *handler) createSample(w http.ResponseWriter, r *http.Request) {
	act, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var payload samplePayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	sm, err := h.app.Samples.Create(r.Context(), act, payload.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sm)
}

func (h *handler) listSamples(w http.ResponseWriter, r *http.Request) {
	var f samplesvc.Filter
	q := r.URL.Query()
	if v := q.Get("customer_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, errors.BadRequest("invalid customer_id"))
			return
		}
		f.CustomerID = id
	}
	if v := q.Get("project_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, errors.BadRequest("invalid project_id"))
			return
		}
		f.ProjectID = id
	}
	f.Status = q.Get("status")

	sms, err := h.app.Samples.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sms)
}

func (h *handler) searchSamples(w http.ResponseWriter, r *http.Request) {
	sms, err := h.app.Search.Samples(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sms)
}

func (h *handler) getSample(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sm, err := h.app.Samples.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sm)
}

func (h *handler) updateSample(w http.ResponseWriter, r *http.Request) {
	act, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var payload samplePayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	sm, err := h.app.Samples.Update(r.Context(), id, act, payload.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sm)
}

func (h *handler) deleteSample(w http.ResponseWriter, r *http.Request) {
	act, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.app.Samples.Delete(r.Context(), id, act); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) setSampleStatus(w http.ResponseWriter, r *http.Request) {
	act, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	sm, err := h.app.Samples.SetStatus(r.Context(), id, act, payload.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sm)
}

func (h *handler) sampleActivities(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	acts, err := h.app.Samples.Activities(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acts)
}
