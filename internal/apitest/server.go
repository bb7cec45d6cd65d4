// Package apitest provides an in-process fake of the insightdash REST API
// for tests. State lives in memory and is discarded with the server.
//
// Every request is counted by "<METHOD> <route template>", for example
// "GET /dashboards/{id}", so tests can assert how many network calls a
// cache operation produced.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/roach88/insightdash/internal/api"
)

// Server is a fake API backed by in-memory fixtures.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	seq        int
	me         api.User
	orgs       []api.Organization
	users      []api.User
	datasets   []api.Dataset
	dashboards []api.Dashboard
	jobs       []*api.AnalysisJob
	auditLogs  []api.AuditLog

	hits      map[string]int
	failures  map[string][]int
	holds     map[string]chan struct{}
	lastAuth  string
	rawBodies map[string]string
}

// NewServer starts a fake API seeded with fixtures and closes it when the
// test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		hits:      make(map[string]int),
		failures:  make(map[string][]int),
		holds:     make(map[string]chan struct{}),
		rawBodies: make(map[string]string),
	}
	s.seed()
	s.Server = httptest.NewServer(s.router())
	t.Cleanup(func() {
		s.releaseAll()
		s.Close()
	})
	return s
}

func (s *Server) router() http.Handler {
	r := mux.NewRouter()
	r.UseEncodedPath()
	r.Use(s.intercept)

	r.HandleFunc("/auth/me", s.getMe).Methods(http.MethodGet)
	r.HandleFunc("/auth/organizations", s.getOrganizations).Methods(http.MethodGet)

	r.HandleFunc("/datasets", s.listDatasets).Methods(http.MethodGet)
	r.HandleFunc("/datasets/{id}", s.getDataset).Methods(http.MethodGet)
	r.HandleFunc("/datasets/{id}", s.deleteDataset).Methods(http.MethodDelete)
	r.HandleFunc("/upload", s.upload).Methods(http.MethodPost)

	r.HandleFunc("/dashboards", s.listDashboards).Methods(http.MethodGet)
	r.HandleFunc("/dashboards", s.createDashboard).Methods(http.MethodPost)
	r.HandleFunc("/dashboards/{id}", s.getDashboard).Methods(http.MethodGet)
	r.HandleFunc("/dashboards/{id}", s.updateDashboard).Methods(http.MethodPatch)
	r.HandleFunc("/dashboards/{id}", s.deleteDashboard).Methods(http.MethodDelete)

	r.HandleFunc("/analyses", s.createAnalysis).Methods(http.MethodPost)
	r.HandleFunc("/analyses/{id}", s.getAnalysis).Methods(http.MethodGet)
	r.HandleFunc("/history", s.getHistory).Methods(http.MethodGet)

	r.HandleFunc("/admin/users", s.listUsers).Methods(http.MethodGet)
	r.HandleFunc("/admin/users", s.createUser).Methods(http.MethodPost)
	r.HandleFunc("/admin/users/{id}", s.updateUser).Methods(http.MethodPatch)
	r.HandleFunc("/admin/users/{id}", s.deleteUser).Methods(http.MethodDelete)
	r.HandleFunc("/admin/audit-logs", s.listAuditLogs).Methods(http.MethodGet)

	return r
}

// intercept counts hits and applies injected failures and holds.
func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tmpl, _ := mux.CurrentRoute(r).GetPathTemplate()
		key := r.Method + " " + tmpl

		s.mu.Lock()
		s.hits[key]++
		s.lastAuth = r.Header.Get("Authorization")
		hold := s.holds[key]
		status := 0
		if q := s.failures[key]; len(q) > 0 {
			status, s.failures[key] = q[0], q[1:]
		}
		s.mu.Unlock()

		if hold != nil {
			select {
			case <-hold:
			case <-r.Context().Done():
				return
			}
		}
		if status != 0 {
			writeError(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Hits returns how many requests reached route, e.g. "GET /dashboards".
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// LastAuthorization returns the Authorization header of the last request.
func (s *Server) LastAuthorization() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuth
}

// Fail makes the next len(statuses) requests to route answer with the
// given statuses, in order.
func (s *Server) Fail(route string, statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = append(s.failures[route], statuses...)
}

// Hold blocks requests to route until the returned release func is called.
func (s *Server) Hold(route string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.holds[route] = ch
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.holds[route] == ch {
			delete(s.holds, route)
			close(ch)
		}
	}
}

func (s *Server) releaseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for route, ch := range s.holds {
		close(ch)
		delete(s.holds, route)
	}
}

// SetRaw replaces the body of a GET route with a fixed payload.
func (s *Server) SetRaw(route, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rawBodies[route] = body
}

// Dashboards returns a copy of the server-side dashboards.
func (s *Server) Dashboards() []api.Dashboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.Dashboard(nil), s.dashboards...)
}

// Datasets returns a copy of the server-side datasets.
func (s *Server) Datasets() []api.Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.Dataset(nil), s.datasets...)
}

func (s *Server) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, 100+s.seq)
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, map[string]any{
		"data":    data,
		"status":  api.StatusSuccess,
		"message": message,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"status":  api.StatusError,
		"message": message,
		"error":   message,
	})
}

// raw writes a fixed payload if one was registered for the route.
func (s *Server) raw(w http.ResponseWriter, r *http.Request) bool {
	tmpl, _ := mux.CurrentRoute(r).GetPathTemplate()
	s.mu.Lock()
	body, ok := s.rawBodies[r.Method+" "+tmpl]
	s.mu.Unlock()
	if !ok {
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
	return true
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) getMe(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeData(w, http.StatusOK, s.me, "")
}

func (s *Server) getOrganizations(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeData(w, http.StatusOK, s.orgs, "")
}

func (s *Server) listDatasets(w http.ResponseWriter, r *http.Request) {
	if s.raw(w, r) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	writeData(w, http.StatusOK, s.datasets, "")
}

func (s *Server) getDataset(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.datasets {
		if d.ID == id {
			writeData(w, http.StatusOK, api.DatasetDetail{Dataset: d, Preview: preview(d.Columns)}, "")
			return
		}
	}
	writeError(w, http.StatusNotFound, "Dataset not found")
}

func (s *Server) deleteDataset(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range s.datasets {
		if d.ID == id {
			s.datasets = append(s.datasets[:i], s.datasets[i+1:]...)
			writeData(w, http.StatusOK, nil, "Dataset deleted successfully")
			return
		}
	}
	writeError(w, http.StatusNotFound, "Dataset not found")
}

var allowedUploadTypes = map[string]bool{
	"text/csv":         true,
	"application/json": true,
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	size, err := io.Copy(io.Discard, file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unreadable file")
		return
	}
	mime := header.Header.Get("Content-Type")
	if !allowedUploadTypes[mime] {
		writeError(w, http.StatusBadRequest, "Invalid file type")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ds := api.Dataset{
		ID:             s.nextID("dataset"),
		OrgID:          "org-1",
		Name:           strings.TrimSuffix(header.Filename, path.Ext(header.Filename)),
		SourceFileName: header.Filename,
		Mime:           mime,
		Rows:           1000,
		Columns:        []string{"col1", "col2", "col3", "col4"},
		UploadedAt:     now(),
		UploadedBy:     s.me.ID,
		Size:           size,
	}
	s.datasets = append([]api.Dataset{ds}, s.datasets...)
	writeData(w, http.StatusOK, api.UploadResult{DatasetID: ds.ID, Preview: preview(ds.Columns)}, "")
}

func (s *Server) listDashboards(w http.ResponseWriter, r *http.Request) {
	if s.raw(w, r) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	writeData(w, http.StatusOK, s.dashboards, "Dashboards retrieved successfully")
}

func (s *Server) getDashboard(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.dashboards {
		if d.ID == id {
			writeData(w, http.StatusOK, d, "")
			return
		}
	}
	writeError(w, http.StatusNotFound, "Dashboard not found")
}

func (s *Server) createDashboard(w http.ResponseWriter, r *http.Request) {
	var patch api.DashboardPatch
	if err := decode(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := api.Dashboard{
		ID:        s.nextID("dashboard"),
		OrgID:     "org-1",
		Tiles:     []api.Tile{},
		CreatedAt: now(),
		CreatedBy: s.me.ID,
	}
	applyDashboardPatch(&d, patch)
	s.dashboards = append([]api.Dashboard{d}, s.dashboards...)
	writeData(w, http.StatusCreated, d, "Dashboard created successfully")
}

func (s *Server) updateDashboard(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var patch api.DashboardPatch
	if err := decode(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.dashboards {
		if s.dashboards[i].ID == id {
			applyDashboardPatch(&s.dashboards[i], patch)
			s.dashboards[i].UpdatedAt = now()
			writeData(w, http.StatusOK, s.dashboards[i], "Dashboard updated successfully")
			return
		}
	}
	writeError(w, http.StatusNotFound, "Dashboard not found")
}

func (s *Server) deleteDashboard(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range s.dashboards {
		if d.ID == id {
			s.dashboards = append(s.dashboards[:i], s.dashboards[i+1:]...)
			writeData(w, http.StatusOK, nil, "Dashboard deleted successfully")
			return
		}
	}
	writeError(w, http.StatusNotFound, "Dashboard not found")
}

func applyDashboardPatch(d *api.Dashboard, p api.DashboardPatch) {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.Tiles != nil {
		d.Tiles = p.Tiles
	}
	if p.Tags != nil {
		d.Tags = p.Tags
	}
	if p.IsPublic != nil {
		d.IsPublic = *p.IsPublic
	}
}

func (s *Server) createAnalysis(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DatasetID string `json:"datasetId"`
	}
	if err := decode(r, &body); err != nil || body.DatasetID == "" {
		writeError(w, http.StatusBadRequest, "datasetId required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	job := &api.AnalysisJob{
		ID:        s.nextID("job"),
		OrgID:     "org-1",
		DatasetID: body.DatasetID,
		Status:    api.JobQueued,
		StartedAt: now(),
		CreatedBy: s.me.ID,
	}
	s.jobs = append([]*api.AnalysisJob{job}, s.jobs...)
	writeData(w, http.StatusOK, api.AnalysisRef{JobID: job.ID}, "")
}

// getAnalysis advances the job on every read: queued -> running in steps
// of 25% -> succeeded.
func (s *Server) getAnalysis(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		if job.ID != id {
			continue
		}
		switch job.Status {
		case api.JobQueued:
			job.Status = api.JobRunning
		case api.JobRunning:
			job.Progress = min(100, job.Progress+25)
			if job.Progress == 100 {
				job.Status = api.JobSucceeded
				job.FinishedAt = now()
				job.Summary = "Analysis completed"
			}
		}
		writeData(w, http.StatusOK, *job, "")
		return
	}
	writeError(w, http.StatusNotFound, "Analysis job not found")
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.AnalysisJob, len(s.jobs))
	for i, j := range s.jobs {
		out[i] = *j
	}
	writeData(w, http.StatusOK, out, "")
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeData(w, http.StatusOK, s.users, "")
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var patch api.UserPatch
	if err := decode(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := api.User{ID: s.nextID("user"), OrgID: "org-1"}
	applyUserPatch(&u, patch)
	s.users = append(s.users, u)
	writeData(w, http.StatusOK, u, "")
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var patch api.UserPatch
	if err := decode(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].ID == id {
			applyUserPatch(&s.users[i], patch)
			writeData(w, http.StatusOK, s.users[i], "")
			return
		}
	}
	writeError(w, http.StatusNotFound, "User not found")
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, u := range s.users {
		if u.ID == id {
			s.users = append(s.users[:i], s.users[i+1:]...)
			writeData(w, http.StatusOK, nil, "User deleted successfully")
			return
		}
	}
	writeError(w, http.StatusNotFound, "User not found")
}

func applyUserPatch(u *api.User, p api.UserPatch) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Roles != nil {
		u.Roles = p.Roles
	}
	if p.OrgID != nil {
		u.OrgID = *p.OrgID
	}
}

func (s *Server) listAuditLogs(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeData(w, http.StatusOK, s.auditLogs, "")
}
