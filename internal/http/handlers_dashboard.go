package http

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"custdash/internal/core"
	applog "custdash/internal/log"
	"custdash/internal/services"
)

type customerOption struct {
	ID       int64
	Name     string
	Selected bool
}

type transactionRow struct {
	ID       int64
	Customer string
	Date     string
	Amount   string
	Negative bool
}

// pageData feeds index.html and the dashboard/filters partials.
type pageData struct {
	Customers   []customerOption
	SelectedID  *int64
	MinAmount   string
	Rows        []transactionRow
	Count       int
	Chart       template.HTML
	Pending     bool
	Unavailable bool
	OOBFilters  bool
}

func (s *Server) buildPageData(v services.View, chart template.HTML) pageData {
	data := pageData{
		SelectedID: v.Filter.SelectedCustomerID,
		Count:      len(v.Transactions),
		Chart:      chart,
	}
	if v.Filter.MinAmount != nil {
		data.MinAmount = strconv.FormatFloat(*v.Filter.MinAmount, 'f', -1, 64)
	}

	if !v.Loaded {
		data.Pending = s.loadStatus() == services.StatusPending
		data.Unavailable = !data.Pending
		return data
	}
	data.Unavailable = s.loadStatus() == services.StatusUnavailable

	for _, c := range v.Customers {
		data.Customers = append(data.Customers, customerOption{
			ID:       c.ID,
			Name:     c.Name,
			Selected: v.Filter.SelectedCustomerID != nil && *v.Filter.SelectedCustomerID == c.ID,
		})
	}
	for _, t := range v.Transactions {
		data.Rows = append(data.Rows, transactionRow{
			ID:       t.ID,
			Customer: v.CustomerName(t.CustomerID),
			Date:     t.Date,
			Amount:   core.FormatAmount(t.Amount),
			Negative: t.Amount < 0,
		})
	}
	return data
}

// renderView captures the session view together with its chart. The view is
// returned so callers can describe exactly what the body shows.
func (s *Server) renderView(r *http.Request, ctrl *services.Controller) (pageData, services.View) {
	var chart bytes.Buffer
	v, err := ctrl.RenderView(&chart)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Chart render failed",
			applog.FieldOperation, applog.OpRender,
			applog.FieldError, err)
		chart.Reset()
	}
	// chart.html is escaped by html/template, so the output is safe to embed
	return s.buildPageData(v, template.HTML(chart.String())), v
}

// renderTemplate executes a named template into buf and reports failures
// through the structured error log.
func (s *Server) renderTemplate(buf *bytes.Buffer, r *http.Request, name string, data any) bool {
	if err := s.templates.ExecuteTemplate(buf, name, data); err != nil {
		fields := applog.NewFields()
		fields[applog.FieldPath] = r.URL.Path
		fields["template"] = name
		fields["error_type"] = applog.ErrorTypeInternal
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Template execution failed", err, applog.ComponentTemplate, applog.OpRender, fields)
		return false
	}
	return true
}

func (s *Server) executeTemplate(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded",
			applog.FieldPath, r.URL.Path,
			applog.FieldComponent, applog.ComponentTemplate,
			"error_type", applog.ErrorTypeConfiguration)
		InternalServerError("templates not loaded").Write(w)
		return
	}

	var buf bytes.Buffer
	if !s.renderTemplate(&buf, r, name, data) {
		InternalServerError("render failed").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFoundError("page not found").Write(w)
		return
	}
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	ctrl := s.session(w, r)
	data, _ := s.renderView(r, ctrl)
	s.executeTemplate(w, r, "index.html", data)
}

// handleDashboardPartial renders the chart and table for the session. The
// loading placeholder polls this until the snapshot arrives.
func (s *Server) handleDashboardPartial(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	ctrl := s.session(w, r)
	data, _ := s.renderView(r, ctrl)
	// Selector options arrive with the snapshot, so the filters are swapped
	// out of band as well.
	data.OOBFilters = !data.Pending && r.Header.Get("HX-Request") == "true"
	s.executeTemplate(w, r, "dashboard", data)
}

func (s *Server) handleSelectCustomer(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Malformed request").Write(w)
		return
	}
	id, err := ParseCustomerSelection(parser)
	if err != nil {
		s.rejectFilter(w, r, "customer_id", "Choose a customer from the list", err)
		return
	}

	ctrl := s.session(w, r)
	ctrl.SelectCustomer(id)
	s.countFilterChange()
	s.writeDashboard(w, r, ctrl)
}

func (s *Server) handleSetMinAmount(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Malformed request").Write(w)
		return
	}
	minAmount, err := ParseMinAmountField(parser)
	if err != nil {
		s.rejectFilter(w, r, "min_amount", "Minimum amount must be a non-negative number", err)
		return
	}

	ctrl := s.session(w, r)
	ctrl.SetMinAmount(minAmount)
	s.countFilterChange()
	s.writeDashboard(w, r, ctrl)
}

// writeDashboard renders the updated partial with a dashboard:updated event.
// The event counts come from the same view the body was rendered from, so a
// concurrent reload cannot make them disagree.
func (s *Server) writeDashboard(w http.ResponseWriter, r *http.Request, ctrl *services.Controller) {
	data, v := s.renderView(r, ctrl)
	if s.templates == nil {
		s.executeTemplate(w, r, "dashboard", data)
		return
	}

	var buf bytes.Buffer
	if !s.renderTemplate(&buf, r, "dashboard", data) {
		InternalServerError("render failed").Write(w)
		return
	}
	NewHTMXResponse().
		TriggerDashboardUpdated(v).
		BodyHTML(buf.String()).
		Write(w)
}

// rejectFilter answers invalid filter input with 422 and leaves the session
// state untouched.
func (s *Server) rejectFilter(w http.ResponseWriter, r *http.Request, field, message string, err error) {
	s.countRejected()
	errorType := applog.ErrorTypeValidation
	if errors.Is(err, errMissingField) {
		message = "Missing " + field
	}
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Invalid filter input",
		"field", field,
		applog.FieldError, err,
		"error_type", errorType)
	UnprocessableEntityError(message).
		TriggerFilterInvalid(field, message).
		Write(w)
}
