package httpapi

import (
	"net/http"

	"github.com/atlaslab/labmanager/internal/app/metrics"
	resultsvc "github.com/atlaslab/labmanager/internal/app/services/results"
)

type valuePayload struct {
	TestTypeID int64  `json:"test_type_id"`
	Value      string `json:"value"`
	Unit       string `json:"unit"`
	UnitType   string `json:"unit_type"`
	Notes      string `json:"notes"`
	Reason     string `json:"reason"`
}

func (p valuePayload) input() resultsvc.ValueInput {
	return resultsvc.ValueInput{
		TestTypeID: p.TestTypeID,
		Value:      p.Value,
		Unit:       p.Unit,
		UnitType:   p.UnitType,
		Notes:      p.Notes,
	}
}

func (h *handler) createSheet(w http.ResponseWriter, r *http.Request) {
	act, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sampleID, err := pathID(r)
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
	entry, err := h.app.Results.CreateSheet(r.Context(), sampleID, act, payload.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// sheetView pairs a result sheet with its values.
type sheetView struct {
	Entry  interface{} `json:"entry"`
	Values interface{} `json:"values"`
}

func (h *handler) getSheetBySample(w http.ResponseWriter, r *http.Request) {
	sampleID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	entry, err := h.app.Results.GetBySample(r.Context(), sampleID)
	if err != nil {
		writeError(w, err)
		return
	}
	values, err := h.app.Results.ListValues(r.Context(), entry.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sheetView{Entry: entry, Values: values})
}

func (h *handler) getSheet(w http.ResponseWriter, r *http.Request) {
	entryID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	entry, err := h.app.Results.Get(r.Context(), entryID)
	if err != nil {
		writeError(w, err)
		return
	}
	values, err := h.app.Results.ListValues(r.Context(), entry.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sheetView{Entry: entry, Values: values})
}

func (h *handler) deleteSheet(w http.ResponseWriter, r *http.Request) {
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
	if err := h.app.Results.DeleteSheet(r.Context(), entryID, act, queryReason(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) addValue(w http.ResponseWriter, r *http.Request) {
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
	var payload valuePayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	v, err := h.app.Results.AddValue(r.Context(), entryID, act, payload.input(), payload.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	if payload.Reason != "" {
		metrics.RecordAmendment("added")
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *handler) updateValue(w http.ResponseWriter, r *http.Request) {
	act, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	valueID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var payload valuePayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	v, err := h.app.Results.UpdateValue(r.Context(), valueID, act, payload.input(), payload.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.RecordAmendment("updated")
	writeJSON(w, http.StatusOK, v)
}

func (h *handler) deleteValue(w http.ResponseWriter, r *http.Request) {
	act, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	valueID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.app.Results.DeleteValue(r.Context(), valueID, act, queryReason(r)); err != nil {
		writeError(w, err)
		return
	}
	metrics.RecordAmendment("deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) commitSheet(w http.ResponseWriter, r *http.Request) {
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
	entry, err := h.app.Results.Commit(r.Context(), entryID, act)
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.RecordSheetCommit()
	writeJSON(w, http.StatusOK, entry)
}
