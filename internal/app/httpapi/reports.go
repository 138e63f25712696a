package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/atlaslab/labmanager/internal/app/metrics"
)

func (h *handler) generateReport(w http.ResponseWriter, r *http.Request) {
	act, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	entryID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var payload struct {
		Notes string `json:"notes"`
	}
	if r.ContentLength > 0 {
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, err)
			return
		}
	}
	rep, err := h.app.Reports.Generate(r.Context(), entryID, act, payload.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.RecordReportGenerated()
	writeJSON(w, http.StatusCreated, rep)
}

func (h *handler) listReports(w http.ResponseWriter, r *http.Request) {
	reps, err := h.app.Reports.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reps)
}

func (h *handler) getReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rep, err := h.app.Reports.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *handler) deleteReport(w http.ResponseWriter, r *http.Request) {
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
	if err := h.app.Reports.Delete(r.Context(), id, act); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) validateReport(w http.ResponseWriter, r *http.Request) {
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
	rep, err := h.app.Reports.Validate(r.Context(), id, act)
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.RecordReportFinalized()
	writeJSON(w, http.StatusOK, rep)
}

func (h *handler) finalizeReport(w http.ResponseWriter, r *http.Request) {
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
	rep, err := h.app.Reports.Finalize(r.Context(), id, act)
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.RecordReportFinalized()
	writeJSON(w, http.StatusOK, rep)
}

func (h *handler) issueViewKey(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	key, err := h.app.Reports.IssueViewKey(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"view_key": key})
}

func (h *handler) deliverReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.app.Deliverer.Send(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "delivered"})
}

func (h *handler) publicReport(w http.ResponseWriter, r *http.Request) {
	sampleCode := mux.Vars(r)["sampleCode"]
	view, err := h.app.Reports.GetPublic(r.Context(), sampleCode, r.URL.Query().Get("key"))
	metrics.RecordPublicView(err == nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
