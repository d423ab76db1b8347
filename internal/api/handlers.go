package api

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"attack-tracker/internal/storage"
)

func parseAttackFilter(r *http.Request) storage.AttackFilter {
	q := r.URL.Query()

	filter := storage.AttackFilter{Limit: 1000}

	if v := q.Get("limit"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 1 && i <= 10000 {
			filter.Limit = i
		}
	}
	if v := q.Get("offset"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			filter.Offset = i
		}
	}
	if v := q.Get("start_date"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filter.StartDate = &t
		}
	}
	if v := q.Get("end_date"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filter.EndDate = &t
		}
	}
	filter.Protocol = q.Get("protocol")
	filter.AttackType = q.Get("attack_type")

	return filter
}

// listAttacks handles GET /api/v1/attacks.
func (s *Server) listAttacks(w http.ResponseWriter, r *http.Request) {
	filter := parseAttackFilter(r)

	records, total, err := s.querier.Attacks(r.Context(), filter)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, AttackListResponse{Data: toAttackViews(records), Count: total})
}

// summary handles GET /api/v1/attacks/summary.
func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	stats, err := s.querier.Summary(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, stats)
}

// timeline handles GET /api/v1/attacks/timeline.
func (s *Server) timeline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	granularity := q.Get("granularity")
	switch granularity {
	case "":
		granularity = "month"
	case "day", "week", "month":
	default:
		s.errorResponse(w, http.StatusBadRequest, "granularity must be one of day, week, month")
		return
	}

	var start, end *time.Time
	if v := q.Get("start_date"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			start = &t
		}
	}
	if v := q.Get("end_date"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			end = &t
		}
	}

	timeline, err := s.querier.Timeline(r.Context(), granularity, start, end)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, TimelineResponse{Timeline: timeline})
}

// byProtocol handles GET /api/v1/attacks/by-protocol.
func (s *Server) byProtocol(w http.ResponseWriter, r *http.Request) {
	protocols, err := s.querier.ByProtocol(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, ProtocolBreakdownResponse{Protocols: protocols})
}

// byType handles GET /api/v1/attacks/by-type.
func (s *Server) byType(w http.ResponseWriter, r *http.Request) {
	attackTypes, err := s.querier.ByType(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, TypeBreakdownResponse{AttackTypes: attackTypes})
}

// topAttacks handles GET /api/v1/attacks/top.
func (s *Server) topAttacks(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 1 && i <= 100 {
			limit = i
		}
	}

	top, err := s.querier.Top(r.Context(), limit)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, TopAttacksResponse{TopAttacks: toAttackViews(top)})
}

// exportAttacks handles GET /api/v1/attacks/export, streaming a CSV
// attachment of the filtered record set.
func (s *Server) exportAttacks(w http.ResponseWriter, r *http.Request) {
	filter := parseAttackFilter(r)
	filter.Limit = 10000
	filter.Offset = 0

	records, _, err := s.querier.Attacks(r.Context(), filter)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(records) == 0 {
		s.errorResponse(w, http.StatusNotFound, "no data found")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=crypto_attacks.csv")

	writer := csv.NewWriter(w)
	header := []string{"protocol_name", "attack_date", "attack_type", "loss_amount_usd", "description", "source_url", "blockchain", "data_source"}
	if err := writer.Write(header); err != nil {
		return
	}
	for _, rec := range records {
		sourceURL := ""
		if rec.SourceURL != nil {
			sourceURL = *rec.SourceURL
		}
		blockchain := ""
		if rec.Blockchain != nil {
			blockchain = *rec.Blockchain
		}
		row := []string{
			rec.ProtocolName,
			rec.AttackDate.Format("2006-01-02"),
			rec.AttackType,
			rec.LossAmountUSD.String(),
			rec.Description,
			sourceURL,
			blockchain,
			rec.DataSource,
		}
		if err := writer.Write(row); err != nil {
			return
		}
	}
	writer.Flush()
}

// triggerRefresh handles POST /api/v1/attacks/refresh, gated by the shared
// service key.
func (s *Server) triggerRefresh(w http.ResponseWriter, r *http.Request) {
	if s.cfg.ServiceKey == "" || r.Header.Get("X-Service-Key") != s.cfg.ServiceKey {
		s.errorResponse(w, http.StatusForbidden, "invalid service key")
		return
	}

	result, err := s.refresher.Run(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "refresh failed: "+err.Error())
		return
	}

	var jobID *string
	if result.JobID != nil {
		id := result.JobID.String()
		jobID = &id
	}
	s.jsonResponse(w, http.StatusOK, RefreshResponse{
		Status:  result.Status,
		Message: "successfully refreshed " + strconv.Itoa(result.RecordsInserted) + " records",
		JobID:   jobID,
	})
}

// refreshStatus handles GET /api/v1/attacks/refresh/status.
func (s *Server) refreshStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.refresher.LastStatus(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, status)
}
