package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
	"gwi.com/secret-santa-bot/internal/telegram"
)

type APIHandler struct {
	updates telegram.UpdateHandler
	logger  *zap.Logger
}

func NewAPIHandler(updates telegram.UpdateHandler, logger *zap.Logger) *APIHandler {
	return &APIHandler{updates: updates, logger: logger}
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// WebhookHandler accepts one update pushed by Telegram. The update is handled
// before answering; Telegram retries anything that is not a 2xx.
func (h *APIHandler) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.logger.Warn("Invalid webhook payload", zap.Error(err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.logger.Debug("Webhook update received", zap.Int64("update_id", update.UpdateID))
	h.updates.HandleUpdate(r.Context(), update)
	w.WriteHeader(http.StatusOK)
}
