package httpapi

import (
	stderrors "errors"
	"net/http"

	customersvc "github.com/atlaslab/labmanager/internal/app/services/customers"
	"github.com/atlaslab/labmanager/internal/app/storage"
	"github.com/atlaslab/labmanager/internal/errors"
)

type customerPayload struct {
	Name         string `json:"name"`
	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
	Address      string `json:"address"`
	Notes        string `json:"notes"`
	Active       *bool  `json:"active"`
}

func (p customerPayload) input() customersvc.CustomerInput {
	return customersvc.CustomerInput{
		Name:         p.Name,
		ContactName:  p.ContactName,
		ContactEmail: p.ContactEmail,
		ContactPhone: p.ContactPhone,
		Address:      p.Address,
		Notes:        p.Notes,
		Active:       p.Active,
	}
}

func (h *handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var payload customerPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.app.Customers.CreateCustomer(r.Context(), payload.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	cs, err := h.app.Customers.ListCustomers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *handler) searchCustomers(w http.ResponseWriter, r *http.Request) {
	cs, err := h.app.Search.Customers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *handler) searchProjects(w http.ResponseWriter, r *http.Request) {
	ps, err := h.app.Search.Projects(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := h.app.Customers.GetCustomer(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var payload customerPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.app.Customers.UpdateCustomer(r.Context(), id, payload.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.app.Customers.DeleteCustomer(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) customerProjects(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ps, err := h.app.Customers.ListProjects(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

type projectPayload struct {
	CustomerID  int64  `json:"customer_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
}

func (p projectPayload) input() customersvc.ProjectInput {
	return customersvc.ProjectInput{
		CustomerID:  p.CustomerID,
		Name:        p.Name,
		Description: p.Description,
		Active:      p.Active,
	}
}

func (h *handler) createProject(w http.ResponseWriter, r *http.Request) {
	var payload projectPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.app.Customers.CreateProject(r.Context(), payload.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *handler) getProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := h.app.Customers.GetProject(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) updateProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var payload projectPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.app.Customers.UpdateProject(r.Context(), id, payload.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) deleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.app.Customers.DeleteProject(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.app.Backend.GetSettings(r.Context())
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			writeError(w, errors.NotFound("organization settings not configured"))
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *handler) saveSettings(w http.ResponseWriter, r *http.Request) {
	act, err := actor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var payload struct {
		LabName      string `json:"lab_name"`
		Address      string `json:"address"`
		ContactEmail string `json:"contact_email"`
		ContactPhone string `json:"contact_phone"`
		ReportFooter string `json:"report_footer"`
		LogoURL      string `json:"logo_url"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}

	current, err := h.app.Backend.GetSettings(r.Context())
	if err != nil {
		current.ID = 0
	}
	current.LabName = payload.LabName
	current.Address = payload.Address
	current.ContactEmail = payload.ContactEmail
	current.ContactPhone = payload.ContactPhone
	current.ReportFooter = payload.ReportFooter
	current.LogoURL = payload.LogoURL
	userID := act.EffectiveUserID()
	current.UpdatedBy = &userID

	saved, err := h.app.Backend.SaveSettings(r.Context(), current)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
