/**
 * @description
 * HTTP handlers for the withdrawal lifecycle: producer request/history and the
 * admin decision queue.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vendaflow/settlement-service/internal/app"
	"github.com/vendaflow/settlement-service/internal/domain"
	"github.com/vendaflow/settlement-service/internal/store"
)

type withdrawalRequestBody struct {
	Amount int64 `json:"amount"` // in cents
}

// RequestWithdrawalHandler records a producer's cash-out request.
func (h *Handlers) RequestWithdrawalHandler(w http.ResponseWriter, r *http.Request) {
	producerID, ok := GetProducerID(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "Could not get producer ID from context")
		return
	}

	if h.limiter != nil && h.limitPerMin > 0 {
		count, retryAfter, err := h.limiter.ConsumeRateLimit(r.Context(), "withdrawal_request", producerID.String(), h.limitPerMin, time.Minute)
		if err != nil {
			// Rate limiting degrades open: a Redis outage must not block payouts.
			log.Printf("level=warn component=api endpoint=request_withdrawal msg=\"rate limiter unavailable\" err=%v", err)
		} else if count > h.limitPerMin {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeError(w, http.StatusTooManyRequests, "Too many withdrawal requests. Please wait and try again.")
			return
		}
	}

	var body withdrawalRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	request, err := h.withdrawals.RequestWithdrawal(r.Context(), producerID, body.Amount)
	if err != nil {
		var insufficientFunds *app.InsufficientFundsError
		switch {
		case errors.As(err, &insufficientFunds):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"error":  "Insufficient available balance",
				"detail": insufficientFunds,
			})
		case errors.Is(err, app.ErrInvalidWithdrawalAmount):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("level=error component=api endpoint=request_withdrawal producer_id=%s err=%v", producerID, err)
			writeError(w, http.StatusInternalServerError, "Failed to create withdrawal request")
		}
		return
	}

	writeJSON(w, http.StatusCreated, request)
}

// WithdrawalHistoryHandler lists the producer's withdrawal requests.
func (h *Handlers) WithdrawalHistoryHandler(w http.ResponseWriter, r *http.Request) {
	producerID, ok := GetProducerID(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "Could not get producer ID from context")
		return
	}

	history, err := h.withdrawals.WithdrawalHistory(r.Context(), producerID)
	if err != nil {
		log.Printf("level=error component=api endpoint=withdrawal_history producer_id=%s err=%v", producerID, err)
		writeError(w, http.StatusInternalServerError, "Failed to load withdrawal history")
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// AdminListWithdrawalsHandler lists the pending processing queue.
func (h *Handlers) AdminListWithdrawalsHandler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	requests, err := h.withdrawals.PendingWithdrawals(r.Context(), limit, offset)
	if err != nil {
		log.Printf("level=error component=api endpoint=admin_list_withdrawals err=%v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load withdrawal queue")
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

// AdminDecideWithdrawalHandler applies an admin decision to one request.
func (h *Handlers) AdminDecideWithdrawalHandler(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request ID")
		return
	}

	var decision domain.WithdrawalDecision
	if err := json.NewDecoder(r.Body).Decode(&decision); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	request, err := h.withdrawals.ProcessWithdrawal(r.Context(), requestID, decision)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidDecision):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrWithdrawalNotFound):
			writeError(w, http.StatusNotFound, "Withdrawal request not found")
		case errors.Is(err, store.ErrWithdrawalAlreadyProcessed):
			writeError(w, http.StatusConflict, "Withdrawal request already processed")
		default:
			log.Printf("level=error component=api endpoint=admin_decide_withdrawal request_id=%s err=%v", requestID, err)
			writeError(w, http.StatusInternalServerError, "Failed to process withdrawal decision")
		}
		return
	}

	writeJSON(w, http.StatusOK, request)
}
