package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stripelite/backend/internal/service"
)

// InvoiceHandler handles invoice lifecycle and revenue endpoints.
type InvoiceHandler struct {
	invoices *service.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(invoices *service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

// List handles GET /api/invoices. Admins may pass ?user_id= to view another
// user's invoices.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := requireSession(w, r)
	if !ok {
		return
	}

	invoices, err := h.invoices.ListForUser(r.Context(), user, r.URL.Query().Get("user_id"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, invoices)
}

// ListAll handles GET /api/admin/invoices.
func (h *InvoiceHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.invoices.ListAll(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, invoices)
}

// Get handles GET /api/invoices/{id}.
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := requireSession(w, r)
	if !ok {
		return
	}

	view, err := h.invoices.Get(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, view)
}

// Pay handles POST /api/invoices/{id}/pay (self-service card payment).
func (h *InvoiceHandler) Pay(w http.ResponseWriter, r *http.Request) {
	user, ok := requireSession(w, r)
	if !ok {
		return
	}

	if err := h.invoices.Pay(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		Error(w, err)
		return
	}
	Success(w)
}

// MarkPaid handles POST /api/admin/invoices/{id}/mark-paid.
func (h *InvoiceHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	if err := h.invoices.MarkPaid(r.Context(), chi.URLParam(r, "id")); err != nil {
		Error(w, err)
		return
	}
	Success(w)
}

// MarkFailed handles POST /api/admin/invoices/{id}/mark-failed.
func (h *InvoiceHandler) MarkFailed(w http.ResponseWriter, r *http.Request) {
	if err := h.invoices.MarkFailed(r.Context(), chi.URLParam(r, "id")); err != nil {
		Error(w, err)
		return
	}
	Success(w)
}

// Refund handles POST /api/admin/invoices/{id}/refund.
func (h *InvoiceHandler) Refund(w http.ResponseWriter, r *http.Request) {
	if err := h.invoices.Refund(r.Context(), chi.URLParam(r, "id")); err != nil {
		Error(w, err)
		return
	}
	Success(w)
}

// Metrics handles GET /api/admin/metrics.
func (h *InvoiceHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.invoices.Metrics(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, metrics)
}

// MonthlyChart handles GET /api/admin/metrics/monthly.
func (h *InvoiceHandler) MonthlyChart(w http.ResponseWriter, r *http.Request) {
	points, err := h.invoices.MonthlyChart(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"data": points})
}
