package http

import (
	"net/http"

	"custdash/internal/core"
	"custdash/internal/services"
)

type apiTransaction struct {
	core.Transaction
	CustomerName string `json:"customer_name"`
}

type apiFilter struct {
	CustomerID *int64   `json:"customer_id"`
	MinAmount  *float64 `json:"min_amount"`
}

type apiState struct {
	Status       services.LoadStatus `json:"status"`
	Filter       apiFilter           `json:"filter"`
	Mode         core.ChartMode      `json:"mode"`
	Transactions []apiTransaction    `json:"transactions"`
	Chart        core.ChartSeries    `json:"chart"`
}

func (s *Server) apiStateFor(v services.View) apiState {
	state := apiState{
		Status: s.loadStatus(),
		Filter: apiFilter{
			CustomerID: v.Filter.SelectedCustomerID,
			MinAmount:  v.Filter.MinAmount,
		},
		Mode:         v.Mode,
		Transactions: make([]apiTransaction, 0, len(v.Transactions)),
		Chart:        v.Series,
	}
	for _, t := range v.Transactions {
		state.Transactions = append(state.Transactions, apiTransaction{
			Transaction:  t,
			CustomerName: v.CustomerName(t.CustomerID),
		})
	}
	return state
}

// handleAPICustomers lists the customers of the loaded snapshot.
func (s *Server) handleAPICustomers(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	v := s.session(w, r).View()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    s.loadStatus(),
		"customers": v.Customers,
	})
}

// handleAPITransactions returns the filtered transaction list of the session.
func (s *Server) handleAPITransactions(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	state := s.apiStateFor(s.session(w, r).View())
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       state.Status,
		"filter":       state.Filter,
		"transactions": state.Transactions,
	})
}

// handleAPIChart returns the chart series of the session.
func (s *Server) handleAPIChart(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	v := s.session(w, r).View()
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":   v.Mode,
		"labels": v.Series.Labels,
		"points": v.Series.Points,
		"total":  v.Series.Total(),
	})
}

// handleAPIFilter applies customer_id and/or min_amount from a JSON or form
// body and returns the whole derived state. Both fields are validated before
// either is applied.
func (s *Server) handleAPIFilter(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		s.countRejected()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}

	var (
		customerID *int64
		minAmount  *float64
		err        error
	)
	hasCustomer, hasAmount := parser.Has("customer_id"), parser.Has("min_amount")
	if hasCustomer {
		if customerID, err = ParseCustomerSelection(parser); err != nil {
			s.countRejected()
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"field": "customer_id", "error": err.Error()})
			return
		}
	}
	if hasAmount {
		if minAmount, err = ParseMinAmountField(parser); err != nil {
			s.countRejected()
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"field": "min_amount", "error": err.Error()})
			return
		}
	}

	ctrl := s.session(w, r)
	v := ctrl.View()
	if hasCustomer {
		v = ctrl.SelectCustomer(customerID)
		s.countFilterChange()
	}
	if hasAmount {
		v = ctrl.SetMinAmount(minAmount)
		s.countFilterChange()
	}
	writeJSON(w, http.StatusOK, s.apiStateFor(v))
}
