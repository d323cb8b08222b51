package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/scienta/skjera/internal/directory"
)

// EmployeeDirectory is the read side of the employee store the API exposes.
type EmployeeDirectory interface {
	Employees(ctx context.Context) ([]directory.Employee, error)
	EmployeeByID(ctx context.Context, id string) (directory.Employee, error)
	AccountsByEmployee(ctx context.Context, employeeID string) ([]directory.Account, error)
}

type employeeResponse struct {
	ID       string              `json:"id"`
	Email    string              `json:"email"`
	Name     string              `json:"name"`
	DOB      *directory.Date     `json:"dob,omitempty"`
	Accounts []directory.Account `json:"accounts,omitempty"`
}

// MountAPI registers the employee API and the health endpoint on the server's
// router.
func (s *Server) MountAPI(dir EmployeeDirectory) {
	s.Router.Get("/healthz", handleHealth)
	s.Router.Route("/api/employees", func(r chi.Router) {
		r.Get("/", s.handleListEmployees(dir))
		r.Get("/{id}", s.handleGetEmployee(dir))
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListEmployees(dir EmployeeDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		employees, err := dir.Employees(r.Context())
		if err != nil {
			AddError(r.Context(), err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "employee lookup failed"})
			return
		}

		out := make([]employeeResponse, 0, len(employees))
		for _, e := range employees {
			out = append(out, employeeResponse{ID: e.ID, Email: e.Email, Name: e.Name, DOB: e.DOB})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) handleGetEmployee(dir EmployeeDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		AddLogField(r.Context(), "employee_id", id)

		e, err := dir.EmployeeByID(r.Context(), id)
		if errors.Is(err, directory.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such employee"})
			return
		}
		if err != nil {
			AddError(r.Context(), err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "employee lookup failed"})
			return
		}

		accounts, err := dir.AccountsByEmployee(r.Context(), e.ID)
		if err != nil {
			AddError(r.Context(), err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "account lookup failed"})
			return
		}

		writeJSON(w, http.StatusOK, employeeResponse{
			ID: e.ID, Email: e.Email, Name: e.Name, DOB: e.DOB, Accounts: accounts,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
