package api

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/xenocrm/crm-backend/internal/delivery"
)

type vendorSendRequest struct {
	CampaignID string `json:"campaignId"`
	CustomerID string `json:"customerId"`
}

type vendorSendResponse struct {
	Status string `json:"status"`
}

// handleVendorSend simulates one delivery attempt on behalf of the vendor.
// The outcome is returned synchronously and the matching delivery event is
// dispatched to the communication log.
func (s *Server) handleVendorSend(w http.ResponseWriter, r *http.Request) {
	var req vendorSendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(w, r, ErrCodeInvalidJSON, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.CampaignID) == "" || strings.TrimSpace(req.CustomerID) == "" {
		BadRequestError(w, r, ErrCodeMissingField, "campaignId and customerId are required")
		return
	}

	status := s.sim.Send(req.CampaignID, req.CustomerID)
	writeJSON(w, http.StatusOK, vendorSendResponse{Status: status})
}

// handleDeliveryReceipt ingests an outcome reported by an external vendor and
// writes it through the same record path as simulated events. The log keeps
// no foreign keys, so a receipt for an unknown campaign is still recorded.
func (s *Server) handleDeliveryReceipt(w http.ResponseWriter, r *http.Request) {
	var ev delivery.Event
	if err := decodeJSON(w, r, &ev); err != nil {
		BadRequestError(w, r, ErrCodeInvalidJSON, "invalid JSON body")
		return
	}
	if strings.TrimSpace(ev.Status) == "" {
		BadRequestError(w, r, ErrCodeMissingField, "status is required")
		return
	}

	entry, err := s.log.Record(r.Context(), ev)
	if err != nil {
		s.logger.Error("delivery receipt write failed",
			zap.String("campaignId", ev.CampaignID), zap.Error(err))
		StoreError(w, r, "failed to record delivery receipt")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
