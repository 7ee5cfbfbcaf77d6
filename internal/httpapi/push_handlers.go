package httpapi

import (
	"encoding/json"
	"net/http"
)

func (r *Router) handlePushRegister(w http.ResponseWriter, req *http.Request) {
	user := userFrom(req)

	var body struct {
		Token    string `json:"token"`
		Platform string `json:"platform"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	if body.Platform == "" {
		body.Platform = "ios"
	}

	if err := r.store.RegisterPushToken(req.Context(), user.ID, body.Token, body.Platform); err != nil {
		r.logger.Printf("push token registration failed: %v", err)
		captureError(req, err, "register push token")
		writeError(w, http.StatusInternalServerError, "failed to register push token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "registered"})
}

func (r *Router) handlePushUnregister(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	if err := r.store.UnregisterPushToken(req.Context(), body.Token); err != nil {
		r.logger.Printf("push token removal failed: %v", err)
		captureError(req, err, "unregister push token")
		writeError(w, http.StatusInternalServerError, "failed to unregister push token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unregistered"})
}
