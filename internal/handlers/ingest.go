package handlers

import (
	"net/http"

	"github.com/gonglijing/alertfi/internal/ingest"
)

// ReceiveESP32Data 探测器上报（无需登录）
func (h *Handler) ReceiveESP32Data(w http.ResponseWriter, r *http.Request) {
	var p ingest.Payload
	if err := decodeJSON(r, &p); err != nil {
		WriteError(w, r, err)
		return
	}
	result, err := h.ingest.Ingest(r.Context(), ingest.SourceHTTP, p)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    result,
		Message: "Data received",
	})
}
