package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xenocrm/crm-backend/internal/rules"
	"github.com/xenocrm/crm-backend/internal/segment"
	"github.com/xenocrm/crm-backend/internal/store"
)

type createCampaignRequest struct {
	Name         string          `json:"name"`
	Rules        json.RawMessage `json:"rules"`
	AudienceSize int64           `json:"audienceSize"`
}

// handleCreateCampaign stores a campaign. The rule array is stored verbatim
// for audit and replay; audienceSize is the snapshot the caller captured from
// the filter preview and is never re-derived.
func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(w, r, ErrCodeInvalidJSON, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		BadRequestError(w, r, ErrCodeMissingField, "name is required")
		return
	}
	// The rules must at least decode as a rule array, even though they are
	// stored as submitted.
	if len(req.Rules) > 0 {
		var rs rules.RuleSet
		if err := json.Unmarshal(req.Rules, &rs); err != nil {
			BadRequestError(w, r, ErrCodeInvalidJSON, "rules must be an array of filter rules")
			return
		}
	}

	created, err := s.store.CreateCampaign(r.Context(), store.Campaign{
		Name:         req.Name,
		Rules:        req.Rules,
		AudienceSize: req.AudienceSize,
	})
	if err != nil {
		s.logger.Error("create campaign failed", zap.Error(err))
		StoreError(w, r, "failed to create campaign")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := s.store.ListCampaigns(r.Context())
	if err != nil {
		s.logger.Error("list campaigns failed", zap.Error(err))
		StoreError(w, r, "failed to list campaigns")
		return
	}
	if campaigns == nil {
		campaigns = []store.Campaign{}
	}
	writeJSON(w, http.StatusOK, campaigns)
}

func (s *Server) handleCampaignStats(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	if campaignID == "" {
		BadRequestError(w, r, ErrCodeMissingField, "campaign id is required")
		return
	}

	stats, err := s.log.StatsFor(r.Context(), campaignID)
	if err != nil {
		s.logger.Error("campaign stats failed", zap.String("campaignId", campaignID), zap.Error(err))
		StoreError(w, r, "failed to aggregate campaign stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type deliverRequest struct {
	CampaignID string        `json:"campaignId"`
	Rules      rules.RuleSet `json:"rules"`
}

// handleDeliverCampaign selects the campaign audience and runs one
// simulate-and-log attempt per recipient. This path compiles in skip-unknown
// mode: campaigns stored before operator validation existed keep delivering,
// with unrecognised rules contributing nothing.
func (s *Server) handleDeliverCampaign(w http.ResponseWriter, r *http.Request) {
	var req deliverRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(w, r, ErrCodeInvalidJSON, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.CampaignID) == "" {
		BadRequestError(w, r, ErrCodeMissingField, "campaignId is required")
		return
	}

	q, err := segment.Compile(req.Rules, segment.ModeSkipUnknown)
	if err != nil {
		ValidationError(w, r, err.Error())
		return
	}

	result, err := s.runner.Deliver(r.Context(), req.CampaignID, q)
	if err != nil {
		s.logger.Error("campaign delivery failed", zap.String("campaignId", req.CampaignID), zap.Error(err))
		StoreError(w, r, "failed to select campaign audience")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
