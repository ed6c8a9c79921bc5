/**
 * @description
 * Service-to-service HTTP handlers. The commerce platform registers a pending
 * sale here at checkout time, before the gateway charge happens; the webhook
 * intake later settles it by gateway reference.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vendaflow/settlement-service/internal/app"
	"github.com/vendaflow/settlement-service/internal/domain"
	"github.com/vendaflow/settlement-service/internal/store"
)

type registerSaleBody struct {
	ProducerID       uuid.UUID `json:"producer_id"`
	GatewayReference string    `json:"gateway_reference"`
	PaymentMethod    string    `json:"payment_method"`
	Installments     int       `json:"installments"`
	IsSubscription   bool      `json:"is_subscription"`
	Gross            int64     `json:"gross"` // in cents
}

// RegisterSaleHandler records a pending sale ahead of its gateway charge.
func (h *Handlers) RegisterSaleHandler(w http.ResponseWriter, r *http.Request) {
	var body registerSaleBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sale := &domain.Sale{
		ProducerID:       body.ProducerID,
		GatewayReference: body.GatewayReference,
		PaymentMethod:    body.PaymentMethod,
		Installments:     body.Installments,
		IsSubscription:   body.IsSubscription,
		Gross:            body.Gross,
	}

	if err := h.settlement.RegisterSale(r.Context(), sale); err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidSale):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrDuplicateReference):
			writeError(w, http.StatusConflict, "A sale with this gateway reference already exists")
		default:
			log.Printf("level=error component=api endpoint=register_sale reference=%s err=%v", body.GatewayReference, err)
			writeError(w, http.StatusInternalServerError, "Failed to register sale")
		}
		return
	}

	writeJSON(w, http.StatusCreated, sale)
}

// GetSaleHandler retrieves one sale with its settlement breakdown.
func (h *Handlers) GetSaleHandler(w http.ResponseWriter, r *http.Request) {
	saleID, err := uuid.Parse(chi.URLParam(r, "saleID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid sale ID")
		return
	}

	sale, err := h.settlement.SaleByID(r.Context(), saleID)
	if err != nil {
		if errors.Is(err, store.ErrSaleNotFound) {
			writeError(w, http.StatusNotFound, "Sale not found")
			return
		}
		log.Printf("level=error component=api endpoint=get_sale sale_id=%s err=%v", saleID, err)
		writeError(w, http.StatusInternalServerError, "Failed to load sale")
		return
	}
	writeJSON(w, http.StatusOK, sale)
}
