package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mkwei/folio/internal/modules/ledger"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.HealthCheck(r.Context()); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "folio",
	})
}

// handleAccounts returns every account seen across statements.
func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.repo.GetAccounts()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list accounts")
		s.writeError(w, http.StatusInternalServerError, "failed to list accounts")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"accounts": accounts})
}

func (s *Server) handleBrokers(w http.ResponseWriter, r *http.Request) {
	s.writeDistinct(w, "brokers", s.repo.ListBrokers)
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	s.writeDistinct(w, "symbols", s.repo.ListSymbols)
}

func (s *Server) handleCurrencies(w http.ResponseWriter, r *http.Request) {
	s.writeDistinct(w, "currencies", s.repo.ListCurrencies)
}

func (s *Server) writeDistinct(w http.ResponseWriter, key string, list func() ([]string, error)) {
	values, err := list()
	if err != nil {
		s.log.Error().Err(err).Str("list", key).Msg("Failed to list distinct values")
		s.writeError(w, http.StatusInternalServerError, "failed to list "+key)
		return
	}
	if values == nil {
		values = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{key: values})
}

// handleTransactions returns stored transactions, newest first, narrowed by
// query parameters: account_id, symbol, broker, type, start_date, end_date,
// limit.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ledger.Filter{
		AccountID: q.Get("account_id"),
		Symbol:    q.Get("symbol"),
		Broker:    q.Get("broker"),
		Type:      q.Get("type"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		f.Limit = limit
	}

	records, err := s.repo.GetTransactions(f)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to query transactions")
		s.writeError(w, http.StatusInternalServerError, "failed to query transactions")
		return
	}
	if records == nil {
		records = []ledger.Record{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": records,
		"count":        len(records),
	})
}

// handleSummary returns portfolio totals in TWD.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.portfolio.GetSummary()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to build summary")
		s.writeError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

// handleRealized returns per-symbol realized profit and loss.
func (s *Server) handleRealized(w http.ResponseWriter, r *http.Request) {
	report, err := s.portfolio.GetRealized()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to build realized report")
		s.writeError(w, http.StatusInternalServerError, "failed to build realized report")
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// handleHoldings returns open positions at cost.
func (s *Server) handleHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := s.portfolio.GetHoldings()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to build holdings")
		s.writeError(w, http.StatusInternalServerError, "failed to build holdings")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"holdings": holdings,
		"count":    len(holdings),
	})
}

// handleUnrealized returns open positions valued at market quotes.
func (s *Server) handleUnrealized(w http.ResponseWriter, r *http.Request) {
	report, err := s.portfolio.GetUnrealized()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to build unrealized report")
		s.writeError(w, http.StatusInternalServerError, "failed to build unrealized report")
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// handlePerformance returns the per-year performance breakdown.
func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	report, err := s.portfolio.GetPerformance()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to build performance report")
		s.writeError(w, http.StatusInternalServerError, "failed to build performance report")
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// handleProcess runs one import cycle over the statements directory.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	s.log.Info().Msg("Manual statement processing triggered")

	result, err := s.processor.Run(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Statement processing failed")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// handleProcessingLog returns recent pipeline outcomes.
func (s *Server) handleProcessingLog(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	entries, err := s.plog.GetRecent(limit)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to read processing log")
		s.writeError(w, http.StatusInternalServerError, "failed to read processing log")
		return
	}
	if entries == nil {
		entries = []ledger.RunEntry{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// handleFreshness reports how stale each broker's data is.
func (s *Server) handleFreshness(w http.ResponseWriter, r *http.Request) {
	report, err := s.freshness.Check()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to build freshness report")
		s.writeError(w, http.StatusInternalServerError, "failed to build freshness report")
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
