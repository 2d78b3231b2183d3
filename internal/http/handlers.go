package http

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"spendable/internal/core"
	"spendable/internal/services"
)

// Wire representations. Amounts travel as decimal euro strings ("12.34"),
// dates as YYYY-MM-DD.
type (
	periodPayload struct {
		Start     string `json:"start"`
		End       string `json:"end"`
		Repeating bool   `json:"repeating"`
	}

	incomePayload struct {
		Amount string        `json:"amount"`
		Period periodPayload `json:"period"`
	}

	savingsPayload struct {
		Mode        string        `json:"mode"`
		Percentage  float64       `json:"percentage,omitempty"`
		FixedAmount string        `json:"fixed_amount,omitempty"`
		Period      periodPayload `json:"period"`
	}

	fixedExpensePayload struct {
		ID          int64         `json:"id,omitempty"`
		Description string        `json:"description"`
		Amount      string        `json:"amount"`
		Period      periodPayload `json:"period"`
	}

	futureExpensePayload struct {
		ID          int64  `json:"id,omitempty"`
		Description string `json:"description"`
		Amount      string `json:"amount"`
		DueDate     string `json:"due_date"`
	}

	transactionPayload struct {
		ID       int64  `json:"id,omitempty"`
		Amount   string `json:"amount"`
		Type     string `json:"type"`
		Date     string `json:"date"`
		Category string `json:"category,omitempty"`
	}

	createdPayload struct {
		ID int64 `json:"id"`
	}
)

func formatAmount(m core.Money) string {
	cents := m.Cents
	neg := ""
	if cents < 0 {
		neg = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", neg, cents/100, cents%100)
}

func periodToPayload(p core.Period) periodPayload {
	payload := periodPayload{Repeating: p.Repeating}
	if !p.Start.IsEmpty() {
		payload.Start = p.Start.String()
	}
	if !p.End.IsEmpty() {
		payload.End = p.End.String()
	}
	return payload
}

func (p periodPayload) toPeriod() (core.Period, error) {
	start, err := parseDate(p.Start)
	if err != nil {
		return core.Period{}, fmt.Errorf("invalid period start: %w", err)
	}
	end, err := parseDate(p.End)
	if err != nil {
		return core.Period{}, fmt.Errorf("invalid period end: %w", err)
	}
	return core.NewPeriod(start, end, p.Repeating), nil
}

// isValidationError maps domain validation failures to 422 responses.
func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrInvalidAmount,
		core.ErrInvalidPeriod,
		core.ErrInvalidDueDate,
		core.ErrInvalidType,
		core.ErrInvalidMode,
		core.ErrInvalidPercentage,
		core.ErrEmptyDescription,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case isValidationError(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, sql.ErrNoRows):
		writeError(w, http.StatusNotFound, "not found")
	default:
		slog.ErrorContext(r.Context(), "Request failed", "operation", op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// handleBudgetToday answers the headline question: how much can be spent
// today. Accepts an optional ?date=YYYY-MM-DD for other days.
func (s *Server) handleBudgetToday(w http.ResponseWriter, r *http.Request) {
	day, err := parseDateParam(r, "date", services.Today())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date parameter, expected YYYY-MM-DD")
		return
	}

	key := day.String()
	if cached, found := s.overviewCache.Get(key); found {
		slog.DebugContext(r.Context(), "Overview cache hit", "date", key)
		writeJSON(w, http.StatusOK, cached)
		return
	}

	overview, err := s.service.Overview(r.Context(), day)
	if err != nil {
		s.writeServiceError(w, r, err, "budget_overview")
		return
	}

	s.overviewCache.Set(key, overview)
	writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handleGetIncomeSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.service.GetIncomeSettings(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "get_income_settings")
		return
	}
	if settings == nil {
		writeError(w, http.StatusNotFound, "income settings not configured")
		return
	}
	writeJSON(w, http.StatusOK, incomePayload{
		Amount: formatAmount(settings.Amount),
		Period: periodToPayload(settings.Period),
	})
}

func (s *Server) handleSaveIncomeSettings(w http.ResponseWriter, r *http.Request) {
	var payload incomePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := parseAmount(payload.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}
	period, err := payload.Period.toPeriod()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	settings := core.IncomeSettings{Amount: amount, Period: period}
	if err := s.service.SaveIncomeSettings(r.Context(), settings); err != nil {
		s.writeServiceError(w, r, err, "save_income_settings")
		return
	}

	s.invalidateOverview()
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleGetSavingsPolicy(w http.ResponseWriter, r *http.Request) {
	policy, err := s.service.GetSavingsPolicy(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "get_savings_policy")
		return
	}
	if policy == nil {
		writeError(w, http.StatusNotFound, "savings policy not configured")
		return
	}

	payload := savingsPayload{
		Mode:   string(policy.Mode),
		Period: periodToPayload(policy.Period),
	}
	switch policy.Mode {
	case core.SavingsPercentage:
		payload.Percentage = policy.Percentage
	case core.SavingsFixed:
		payload.FixedAmount = formatAmount(policy.FixedAmount)
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleSaveSavingsPolicy(w http.ResponseWriter, r *http.Request) {
	var payload savingsPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	period, err := payload.Period.toPeriod()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	policy := core.SavingsPolicy{
		Mode:       core.SavingsMode(payload.Mode),
		Percentage: payload.Percentage,
		Period:     period,
	}
	if payload.FixedAmount != "" {
		amount, err := parseAmount(payload.FixedAmount)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid fixed amount")
			return
		}
		policy.FixedAmount = amount
	}

	if err := s.service.SaveSavingsPolicy(r.Context(), policy); err != nil {
		s.writeServiceError(w, r, err, "save_savings_policy")
		return
	}

	s.invalidateOverview()
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleListFixedExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.service.ListFixedExpenses(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "list_fixed_expenses")
		return
	}

	payload := make([]fixedExpensePayload, 0, len(expenses))
	for _, e := range expenses {
		payload = append(payload, fixedExpensePayload{
			ID:          e.ID,
			Description: e.Description,
			Amount:      formatAmount(e.Amount),
			Period:      periodToPayload(e.Period),
		})
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleCreateFixedExpense(w http.ResponseWriter, r *http.Request) {
	var payload fixedExpensePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := parseAmount(payload.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}
	period, err := payload.Period.toPeriod()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	expense := core.FixedExpense{
		Description: sanitizeInput(payload.Description),
		Amount:      amount,
		Period:      period,
	}
	id, err := s.service.AddFixedExpense(r.Context(), expense)
	if err != nil {
		s.writeServiceError(w, r, err, "create_fixed_expense")
		return
	}

	s.invalidateOverview()
	writeJSON(w, http.StatusCreated, createdPayload{ID: id})
}

func (s *Server) handleDeleteFixedExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.service.DeleteFixedExpense(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err, "delete_fixed_expense")
		return
	}

	s.invalidateOverview()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListFutureExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.service.ListFutureExpenses(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "list_future_expenses")
		return
	}

	payload := make([]futureExpensePayload, 0, len(expenses))
	for _, e := range expenses {
		payload = append(payload, futureExpensePayload{
			ID:          e.ID,
			Description: e.Description,
			Amount:      formatAmount(e.Amount),
			DueDate:     e.DueDate.String(),
		})
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleCreateFutureExpense(w http.ResponseWriter, r *http.Request) {
	var payload futureExpensePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := parseAmount(payload.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}
	due, err := parseDate(payload.DueDate)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid due date, expected YYYY-MM-DD")
		return
	}

	expense := core.FutureExpense{
		Description: sanitizeInput(payload.Description),
		Amount:      amount,
		DueDate:     due,
	}
	id, err := s.service.AddFutureExpense(r.Context(), expense)
	if err != nil {
		s.writeServiceError(w, r, err, "create_future_expense")
		return
	}

	s.invalidateOverview()
	writeJSON(w, http.StatusCreated, createdPayload{ID: id})
}

func (s *Server) handleDeleteFutureExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.service.DeleteFutureExpense(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err, "delete_future_expense")
		return
	}

	s.invalidateOverview()
	w.WriteHeader(http.StatusNoContent)
}

// handleListTransactions returns ledger entries between ?from and ?to
// (inclusive), defaulting to today on both ends.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	today := services.Today()
	from, err := parseDateParam(r, "from", today)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from parameter, expected YYYY-MM-DD")
		return
	}
	to, err := parseDateParam(r, "to", today)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to parameter, expected YYYY-MM-DD")
		return
	}

	txs, err := s.service.ListTransactions(r.Context(), from, to)
	if err != nil {
		s.writeServiceError(w, r, err, "list_transactions")
		return
	}

	payload := make([]transactionPayload, 0, len(txs))
	for _, tx := range txs {
		payload = append(payload, transactionPayload{
			ID:       tx.ID,
			Amount:   formatAmount(tx.Amount),
			Type:     string(tx.Type),
			Date:     tx.Date.String(),
			Category: tx.Category,
		})
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	var payload transactionPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := parseAmount(payload.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	date := services.Today()
	if payload.Date != "" {
		if date, err = parseDate(payload.Date); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid date, expected YYYY-MM-DD")
			return
		}
	}

	tx := core.Transaction{
		Amount:   amount,
		Type:     core.TransactionType(payload.Type),
		Date:     date,
		Category: sanitizeInput(payload.Category),
	}
	id, err := s.service.RecordTransaction(r.Context(), tx)
	if err != nil {
		s.writeServiceError(w, r, err, "record_transaction")
		return
	}

	s.invalidateOverview()
	writeJSON(w, http.StatusCreated, createdPayload{ID: id})
}
