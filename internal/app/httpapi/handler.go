// Package httpapi exposes the application services as a REST API.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	app "github.com/atlaslab/labmanager/internal/app"
	"github.com/atlaslab/labmanager/internal/app/domain/identity"
	"github.com/atlaslab/labmanager/internal/errors"
	"github.com/atlaslab/labmanager/internal/middleware"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
}

// NewHandler returns a router exposing the REST API. Authentication
// and the other middleware are layered on by the caller.
func NewHandler(application *app.Application) http.Handler {
	h := &handler{app: application}
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	r.HandleFunc("/public/reports/{sampleCode}", h.publicReport).Methods(http.MethodGet)

	adminOnly := middleware.RequireRole(identity.RoleLabAdministrator, identity.RoleSuperAdministrator)
	users := r.PathPrefix("/users").Subrouter()
	users.Use(adminOnly)
	users.HandleFunc("", h.createUser).Methods(http.MethodPost)
	users.HandleFunc("", h.listUsers).Methods(http.MethodGet)
	users.HandleFunc("/{id:[0-9]+}", h.getUser).Methods(http.MethodGet)
	users.HandleFunc("/{id:[0-9]+}/active", h.setUserActive).Methods(http.MethodPut)
	users.HandleFunc("/{id:[0-9]+}/logins", h.userLogins).Methods(http.MethodGet)

	r.HandleFunc("/customers", h.createCustomer).Methods(http.MethodPost)
	r.HandleFunc("/customers", h.listCustomers).Methods(http.MethodGet)
	r.HandleFunc("/customers/search", h.searchCustomers).Methods(http.MethodGet)
	r.HandleFunc("/customers/{id:[0-9]+}", h.getCustomer).Methods(http.MethodGet)
	r.HandleFunc("/customers/{id:[0-9]+}", h.updateCustomer).Methods(http.MethodPut)
	r.HandleFunc("/customers/{id:[0-9]+}", h.deleteCustomer).Methods(http.MethodDelete)
	r.HandleFunc("/customers/{id:[0-9]+}/projects", h.customerProjects).Methods(http.MethodGet)

	r.HandleFunc("/projects", h.createProject).Methods(http.MethodPost)
	r.HandleFunc("/projects/search", h.searchProjects).Methods(http.MethodGet)
	r.HandleFunc("/projects/{id:[0-9]+}", h.getProject).Methods(http.MethodGet)
	r.HandleFunc("/projects/{id:[0-9]+}", h.updateProject).Methods(http.MethodPut)
	r.HandleFunc("/projects/{id:[0-9]+}", h.deleteProject).Methods(http.MethodDelete)

	h.catalogRoutes(r)

	r.HandleFunc("/samples", h.createSample).Methods(http.MethodPost)
	r.HandleFunc("/samples", h.listSamples).Methods(http.MethodGet)
	r.HandleFunc("/samples/search", h.searchSamples).Methods(http.MethodGet)
	r.HandleFunc("/samples/{id:[0-9]+}", h.getSample).Methods(http.MethodGet)
	r.HandleFunc("/samples/{id:[0-9]+}", h.updateSample).Methods(http.MethodPut)
	r.HandleFunc("/samples/{id:[0-9]+}", h.deleteSample).Methods(http.MethodDelete)
	r.HandleFunc("/samples/{id:[0-9]+}/status", h.setSampleStatus).Methods(http.MethodPut)
	r.HandleFunc("/samples/{id:[0-9]+}/activities", h.sampleActivities).Methods(http.MethodGet)
	r.HandleFunc("/samples/{id:[0-9]+}/results", h.createSheet).Methods(http.MethodPost)
	r.HandleFunc("/samples/{id:[0-9]+}/results", h.getSheetBySample).Methods(http.MethodGet)

	r.HandleFunc("/results/{id:[0-9]+}", h.getSheet).Methods(http.MethodGet)
	r.HandleFunc("/results/{id:[0-9]+}", h.deleteSheet).Methods(http.MethodDelete)
	r.HandleFunc("/results/{id:[0-9]+}/values", h.addValue).Methods(http.MethodPost)
	r.HandleFunc("/results/{id:[0-9]+}/commit", h.commitSheet).Methods(http.MethodPost)
	r.HandleFunc("/results/{id:[0-9]+}/reports", h.generateReport).Methods(http.MethodPost)
	r.HandleFunc("/values/{id:[0-9]+}", h.updateValue).Methods(http.MethodPut)
	r.HandleFunc("/values/{id:[0-9]+}", h.deleteValue).Methods(http.MethodDelete)

	r.HandleFunc("/reports", h.listReports).Methods(http.MethodGet)
	r.HandleFunc("/reports/{id:[0-9]+}", h.getReport).Methods(http.MethodGet)
	r.HandleFunc("/reports/{id:[0-9]+}", h.deleteReport).Methods(http.MethodDelete)
	r.HandleFunc("/reports/{id:[0-9]+}/validate", h.validateReport).Methods(http.MethodPost)
	r.HandleFunc("/reports/{id:[0-9]+}/finalize", h.finalizeReport).Methods(http.MethodPost)
	r.HandleFunc("/reports/{id:[0-9]+}/view-key", h.issueViewKey).Methods(http.MethodPost)
	r.HandleFunc("/reports/{id:[0-9]+}/deliver", h.deliverReport).Methods(http.MethodPost)

	r.HandleFunc("/settings", h.getSettings).Methods(http.MethodGet)
	r.Handle("/settings", adminOnly(http.HandlerFunc(h.saveSettings))).Methods(http.MethodPut)

	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---- helpers ----

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.BadRequest("invalid request body").WithCause(err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	serviceErr := errors.From(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(serviceErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"error": serviceErr})
}

func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.BadRequest("invalid id in path")
	}
	return id, nil
}

func actor(r *http.Request) (identity.Actor, error) {
	a, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return identity.Actor{}, errors.Unauthorized("authentication required")
	}
	return a, nil
}

func queryReason(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("reason"))
}
