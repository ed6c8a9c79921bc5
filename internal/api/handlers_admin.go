/**
 * @description
 * Admin-only HTTP handlers: the platform-wide financial overview and fee
 * configuration maintenance (platform defaults and per-producer overrides).
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vendaflow/settlement-service/internal/domain"
	"github.com/vendaflow/settlement-service/internal/store"
)

// AdminOverviewHandler returns the platform-wide financial rollup for the
// requested period (same from/to query parameters as the producer dashboard).
func (h *Handlers) AdminOverviewHandler(w http.ResponseWriter, r *http.Request) {
	from, to, err := parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	overview, err := h.reports.AdminOverview(r.Context(), from, to)
	if err != nil {
		log.Printf("level=error component=api endpoint=admin_overview err=%v", err)
		writeError(w, http.StatusInternalServerError, "Failed to build platform overview")
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// AdminGetPlatformFeesHandler returns the current platform fee defaults.
func (h *Handlers) AdminGetPlatformFeesHandler(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.PlatformDefaults(r.Context())
	if err != nil {
		log.Printf("level=error component=api endpoint=admin_get_platform_fees err=%v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load platform fee settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// AdminUpdatePlatformFeesHandler replaces the platform fee defaults. The body
// must carry the complete settings object; partial updates only exist at the
// producer override level.
func (h *Handlers) AdminUpdatePlatformFeesHandler(w http.ResponseWriter, r *http.Request) {
	var settings domain.FeeSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.settings.UpdatePlatformDefaults(r.Context(), settings); err != nil {
		if errors.Is(err, store.ErrSettingsNotFound) {
			writeError(w, http.StatusNotFound, "Platform fee settings not initialized")
			return
		}
		log.Printf("level=warn component=api endpoint=admin_update_platform_fees outcome=reject err=%v", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	log.Printf("level=info component=api endpoint=admin_update_platform_fees outcome=updated")
	writeJSON(w, http.StatusOK, settings)
}

// AdminUpsertProducerFeesHandler writes a producer's partial fee override.
// Fields left out of the body keep falling through to the platform defaults.
func (h *Handlers) AdminUpsertProducerFeesHandler(w http.ResponseWriter, r *http.Request) {
	producerID, err := uuid.Parse(chi.URLParam(r, "producerID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid producer ID")
		return
	}

	var override domain.FeeSettingsOverride
	if err := json.NewDecoder(r.Body).Decode(&override); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.settings.UpsertProducerOverride(r.Context(), producerID, override); err != nil {
		log.Printf("level=warn component=api endpoint=admin_upsert_producer_fees producer_id=%s outcome=reject err=%v", producerID, err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resolved, err := h.settings.ResolvedForProducer(r.Context(), producerID)
	if err != nil {
		log.Printf("level=error component=api endpoint=admin_upsert_producer_fees producer_id=%s err=%v", producerID, err)
		writeError(w, http.StatusInternalServerError, "Override saved but resolution failed")
		return
	}

	log.Printf("level=info component=api endpoint=admin_upsert_producer_fees producer_id=%s outcome=updated", producerID)
	writeJSON(w, http.StatusOK, resolved)
}
