package handler

import "net/http"

// Wheel возвращает оставшиеся вращения и призы.
func (h *Handler) Wheel(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}

	status, err := h.service.WheelStatus(r.Context(), accountID)
	if err != nil {
		h.fail(w, r, err, "wheel status error")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// Spin вращает колесо.
func (h *Handler) Spin(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}

	spin, err := h.service.SpinWheel(r.Context(), accountID)
	if err != nil {
		h.fail(w, r, err, "spin wheel error")
		return
	}
	writeJSON(w, http.StatusOK, spin)
}

// Spins возвращает историю вращений.
func (h *Handler) Spins(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}

	spins, err := h.service.ListSpins(r.Context(), accountID)
	if err != nil {
		h.fail(w, r, err, "list spins error")
		return
	}
	writeJSON(w, http.StatusOK, spins)
}
