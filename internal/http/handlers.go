package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fincontrol/internal/core"
	"fincontrol/internal/transfer"
)

// draftRequest is the submission payload. The amount arrives as the decimal
// string the form produced (dot or comma separator); it is parsed to cents
// here at the boundary.
type draftRequest struct {
	Name         string        `json:"name"`
	Date         core.Date     `json:"date"`
	Category     core.Category `json:"category"`
	Bank         core.Bank     `json:"bank"`
	Amount       string        `json:"amount"`
	Recurring    bool          `json:"recurring"`
	Installments int           `json:"installments"`
}

type updateRequest struct {
	Updates      core.FieldUpdates `json:"updates"`
	ApplyToGroup bool              `json:"apply_to_group"`
}

type goalRequest struct {
	GoalCents int64 `json:"goal_cents"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps domain sentinels onto HTTP status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrDuplicateID):
		status = http.StatusConflict
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrInvariant):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed", "url", r.URL.Path, "error", err)
		writeJSON(w, status, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func methodNotAllowed(w http.ResponseWriter) {
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listExpenses(w, r)
	case http.MethodPost:
		s.createExpense(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	records := s.svc.ListExpenses(r.Context(), filter)
	writeJSON(w, http.StatusOK, map[string]any{"expenses": records})
}

func (s *Server) createExpense(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	draft := core.Draft{
		Name:         strings.TrimSpace(req.Name),
		Date:         req.Date,
		Category:     req.Category,
		Bank:         req.Bank,
		Amount:       core.Money{Cents: cents},
		Recurring:    req.Recurring,
		Installments: req.Installments,
	}

	records, err := s.svc.SubmitDraft(r.Context(), draft)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.overviewCache.Purge()
	writeJSON(w, http.StatusCreated, map[string]any{"expenses": records})
}

func (s *Server) handleExpenseByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/expenses/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodPatch, http.MethodPut:
		s.updateExpense(w, r, id)
	case http.MethodDelete:
		s.deleteExpense(w, r, id)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) updateExpense(w http.ResponseWriter, r *http.Request, id string) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}
	if req.Updates.IsZero() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no fields to update"})
		return
	}

	if err := s.svc.UpdateExpense(r.Context(), id, req.Updates, req.ApplyToGroup); err != nil {
		writeError(w, r, err)
		return
	}

	s.overviewCache.Purge()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteExpense(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.svc.DeleteExpense(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	s.overviewCache.Purge()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	now := time.Now()
	year, month := now.Year(), int(now.Month())
	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid year"})
			return
		}
		year = y
	}
	if v := r.URL.Query().Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid month"})
			return
		}
		month = m
	}

	key := strconv.Itoa(year) + "-" + strconv.Itoa(month)
	if cached, ok := s.overviewCache.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	overview := s.svc.MonthOverview(r.Context(), year, month)
	s.overviewCache.Set(key, overview)
	writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handleGoal(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		goal := s.svc.Goal(r.Context())
		writeJSON(w, http.StatusOK, goalRequest{GoalCents: goal.Cents})
	case http.MethodPut:
		var req goalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
			return
		}
		if err := s.svc.SetGoal(r.Context(), core.Money{Cents: req.GoalCents}); err != nil {
			writeError(w, r, err)
			return
		}
		s.overviewCache.Purge()
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	format := transfer.Format(r.URL.Query().Get("format"))
	data, err := s.svc.Export(r.Context(), format)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="expenses-export.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	mode, err := transfer.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 10<<20))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "import document too large"})
		return
	}

	doc, err := transfer.Import(body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.svc.Import(r.Context(), doc, mode); err != nil {
		writeError(w, r, err)
		return
	}

	s.overviewCache.Purge()
	writeJSON(w, http.StatusOK, map[string]any{"imported": len(doc.Records), "mode": string(mode)})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"categories": s.svc.Categories(r.Context())})
	case http.MethodPost:
		var cat core.Category
		if err := json.NewDecoder(r.Body).Decode(&cat); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
			return
		}
		if err := s.svc.AddCategory(r.Context(), cat); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, cat)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCategoryByName(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/categories/")
	if name == "" {
		http.NotFound(w, r)
		return
	}
	if err := s.svc.RemoveCategory(r.Context(), name); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBanks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"banks": s.svc.Banks(r.Context())})
	case http.MethodPost:
		var bank core.Bank
		if err := json.NewDecoder(r.Body).Decode(&bank); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
			return
		}
		if err := s.svc.AddBank(r.Context(), bank); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, bank)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleBankByName(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/banks/")
	if name == "" {
		http.NotFound(w, r)
		return
	}
	if err := s.svc.RemoveBank(r.Context(), name); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// filterFromQuery builds a record filter from list query parameters:
// name, from, to (YYYY-MM-DD), min, max (decimal amounts), bank, category.
func filterFromQuery(r *http.Request) (core.Filter, error) {
	q := r.URL.Query()
	filter := core.Filter{
		Name:     q.Get("name"),
		Bank:     q.Get("bank"),
		Category: q.Get("category"),
	}

	if v := q.Get("from"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.UTC)
		if err != nil {
			return core.Filter{}, core.ErrValidation
		}
		filter.From = core.DateOf(t)
	}
	if v := q.Get("to"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.UTC)
		if err != nil {
			return core.Filter{}, core.ErrValidation
		}
		filter.To = core.DateOf(t)
	}
	if v := q.Get("min"); v != "" {
		cents, err := core.ParseDecimalToCents(v)
		if err != nil {
			return core.Filter{}, err
		}
		filter.MinCents = &cents
	}
	if v := q.Get("max"); v != "" {
		cents, err := core.ParseDecimalToCents(v)
		if err != nil {
			return core.Filter{}, err
		}
		filter.MaxCents = &cents
	}

	return filter, nil
}
