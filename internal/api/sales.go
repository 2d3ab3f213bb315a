package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"salesengine/m/domain"
	"salesengine/m/internal/sales"
)

const defaultPageSize = 10

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	var cmd sales.CreateCommand
	if err := decodeJSON(r, &cmd); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	sale, err := h.sales.Create(r.Context(), cmd)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, sale)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sale, err := h.sales.Get(r.Context(), id)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sale)
}

func (h *Handler) editSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var cmd sales.EditCommand
	if err := decodeJSON(r, &cmd); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	cmd.ID = id
	cmd.Actor = currentUser(r)

	sale, err := h.sales.Edit(r.Context(), cmd)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sale)
}

func (h *Handler) deleteSale(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleManager) {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	res, err := h.sales.Delete(r.Context(), id)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (h *Handler) cancelSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sale, err := h.sales.Cancel(r.Context(), sales.CancelCommand{ID: id, Actor: currentUser(r)})
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sale)
}

func (h *Handler) cancelSaleItem(w http.ResponseWriter, r *http.Request) {
	saleID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "itemId")
	if !ok {
		return
	}
	sale, err := h.sales.CancelItem(r.Context(), sales.CancelItemCommand{
		SaleID: saleID,
		ItemID: itemID,
		Actor:  currentUser(r),
	})
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sale)
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	res, err := h.sales.List(r.Context(), q)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// parseListQuery reads page, size, customerId, branchId, startDate, endDate
// and status. Dates are RFC3339 or YYYY-MM-DD; a bare end date covers the
// whole day.
func parseListQuery(r *http.Request) (sales.ListQuery, error) {
	values := r.URL.Query()
	q := sales.ListQuery{Page: 1, PageSize: defaultPageSize, Status: strings.TrimSpace(values.Get("status"))}
	var v domain.Violations

	if raw := values.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			v.Add("page", "Page number must be an integer")
		}
		q.Page = n
	}
	if raw := values.Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			v.Add("pageSize", "Page size must be an integer")
		}
		q.PageSize = n
	}
	q.CustomerID = queryID(&v, values.Get("customerId"), "customerId")
	q.BranchID = queryID(&v, values.Get("branchId"), "branchId")
	q.StartDate = queryDate(&v, values.Get("startDate"), "startDate", false)
	q.EndDate = queryDate(&v, values.Get("endDate"), "endDate", true)

	return q, v.Err()
}

func queryID(v *domain.Violations, raw, field string) *uuid.UUID {
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		v.Add(field, "Must be a valid UUID")
		return nil
	}
	return &id
}

func queryDate(v *domain.Violations, raw, field string, endOfDay bool) *time.Time {
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		v.Add(field, "Must be an RFC3339 timestamp or a YYYY-MM-DD date")
		return nil
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		respondError(w, http.StatusBadRequest, param+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}
