package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/xenocrm/crm-backend/internal/rules"
	"github.com/xenocrm/crm-backend/internal/segment"
	"github.com/xenocrm/crm-backend/internal/store"
)

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var c store.Customer
	if err := decodeJSON(w, r, &c); err != nil {
		BadRequestError(w, r, ErrCodeInvalidJSON, "invalid JSON body")
		return
	}
	if strings.TrimSpace(c.Name) == "" {
		BadRequestError(w, r, ErrCodeMissingField, "name is required")
		return
	}
	if strings.TrimSpace(c.Email) == "" {
		BadRequestError(w, r, ErrCodeMissingField, "email is required")
		return
	}

	created, err := s.store.CreateCustomer(r.Context(), c)
	if err != nil {
		s.logger.Error("create customer failed", zap.Error(err))
		StoreError(w, r, "failed to create customer")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type filterResponse struct {
	Count int64 `json:"count"`
}

// handleFilterCustomers is the live filter preview: the submitted rules are
// compiled in strict mode and the matching customers are counted. An empty
// or missing rule array previews the whole customer base.
func (s *Server) handleFilterCustomers(w http.ResponseWriter, r *http.Request) {
	var rs rules.RuleSet
	if err := decodeJSON(w, r, &rs); err != nil && !errors.Is(err, io.EOF) {
		BadRequestError(w, r, ErrCodeInvalidJSON, "invalid JSON body")
		return
	}

	q, err := segment.Compile(rs, segment.ModeStrict)
	if err != nil {
		ValidationError(w, r, err.Error())
		return
	}

	count, err := s.audience.Count(r.Context(), q)
	if err != nil {
		s.logger.Error("filter count failed", zap.Error(err))
		StoreError(w, r, "failed to count matching customers")
		return
	}
	writeJSON(w, http.StatusOK, filterResponse{Count: count})
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var o store.Order
	if err := decodeJSON(w, r, &o); err != nil {
		BadRequestError(w, r, ErrCodeInvalidJSON, "invalid JSON body")
		return
	}
	if strings.TrimSpace(o.CustomerID) == "" {
		BadRequestError(w, r, ErrCodeMissingField, "customerId is required")
		return
	}

	created, err := s.store.CreateOrder(r.Context(), o)
	if err != nil {
		s.logger.Error("create order failed", zap.Error(err))
		StoreError(w, r, "failed to create order")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}
