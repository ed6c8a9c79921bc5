/**
 * @description
 * This file contains the HTTP handlers for the settlement-service's API
 * endpoints. Handlers are responsible for parsing incoming requests, calling
 * the appropriate methods on the application services, and writing the HTTP
 * response. They act as the bridge between the web layer and the business
 * logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/vendaflow/settlement-service/internal/app"
	"github.com/vendaflow/settlement-service/internal/domain"
	"github.com/vendaflow/settlement-service/internal/store"
)

// Handlers holds the application services that handlers will use.
type Handlers struct {
	settlement  *app.SettlementEngine
	withdrawals *app.WithdrawalManager
	reports     *app.Reports
	settings    *app.SettingsService
	limiter     *app.RedisWithdrawalRateLimiter
	limitPerMin int
}

// NewHandlers creates a new instance of Handlers. limiter may be nil when rate
// limiting is disabled.
func NewHandlers(settlement *app.SettlementEngine, withdrawals *app.WithdrawalManager, reports *app.Reports, settings *app.SettingsService, limiter *app.RedisWithdrawalRateLimiter, limitPerMin int) *Handlers {
	return &Handlers{
		settlement:  settlement,
		withdrawals: withdrawals,
		reports:     reports,
		settings:    settings,
		limiter:     limiter,
		limitPerMin: limitPerMin,
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// GatewayWebhookHandler ingests one payment event from the gateway and
// dispatches it to the settlement engine. Transient failures return 5xx so the
// gateway's retry mechanism redelivers; settlement is idempotent under that.
func (h *Handlers) GatewayWebhookHandler(w http.ResponseWriter, r *http.Request) {
	var event domain.GatewayEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		log.Printf("level=warn component=api endpoint=gateway_webhook outcome=reject reason=invalid_json err=%v", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if event.Reference == "" {
		writeError(w, http.StatusBadRequest, "Event reference is required")
		return
	}

	result, err := h.settlement.HandleGatewayEvent(r.Context(), event)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrSaleNotFound):
			writeError(w, http.StatusNotFound, "No sale matches the event reference")
		case errors.Is(err, app.ErrAmountMismatch), errors.Is(err, app.ErrUnsupportedEventStatus):
			log.Printf("level=warn component=api endpoint=gateway_webhook outcome=reject reference=%s err=%v", event.Reference, err)
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("level=error component=api endpoint=gateway_webhook outcome=error reference=%s err=%v", event.Reference, err)
			writeError(w, http.StatusInternalServerError, "Failed to process gateway event")
		}
		return
	}

	if result == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "processed"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// BalanceHandler returns the authenticated producer's ledger snapshot.
func (h *Handlers) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	producerID, ok := GetProducerID(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "Could not get producer ID from context")
		return
	}

	balance, err := h.reports.BalanceSnapshot(r.Context(), producerID)
	if err != nil {
		log.Printf("level=error component=api endpoint=balance producer_id=%s err=%v", producerID, err)
		writeError(w, http.StatusInternalServerError, "Failed to load balance")
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

// DashboardHandler returns the producer's financial rollup. The period is
// controlled with from/to query parameters (YYYY-MM-DD) and defaults to the
// last 30 days.
func (h *Handlers) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	producerID, ok := GetProducerID(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "Could not get producer ID from context")
		return
	}

	from, to, err := parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	dashboard, err := h.reports.ProducerDashboard(r.Context(), producerID, from, to)
	if err != nil {
		log.Printf("level=error component=api endpoint=dashboard producer_id=%s err=%v", producerID, err)
		writeError(w, http.StatusInternalServerError, "Failed to build dashboard")
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func parsePeriod(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now.AddDate(0, 0, 1)

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid 'from' date, expected YYYY-MM-DD")
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid 'to' date, expected YYYY-MM-DD")
		}
		// Inclusive end date.
		to = parsed.AddDate(0, 0, 1)
	}
	return from, to, nil
}
