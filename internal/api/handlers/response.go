package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/isdelr/opensocial-be/internal/auth"
	"github.com/isdelr/opensocial-be/internal/models"
	"github.com/isdelr/opensocial-be/internal/services"
	"github.com/rs/zerolog/log"
)

// messageResponse is the body of every error and of bodiless successes.
type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

// writeError maps a service error onto the status and message the client sees.
// Anything the client did not cause is logged and reported as a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		writeMessage(w, statusFor(svcErr.Kind), svcErr.Message)
		return
	}

	log.Error().Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("request_id", middleware.GetReqID(r.Context())).
		Msg("Request failed")
	writeMessage(w, http.StatusInternalServerError, "Server Error")
}

func statusFor(kind error) int {
	switch kind {
	case services.ErrValidation, services.ErrConflict:
		return http.StatusBadRequest
	case services.ErrUnauthorized:
		return http.StatusUnauthorized
	case services.ErrForbidden:
		return http.StatusForbidden
	case services.ErrNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// currentUser returns the user the guard attached. Routes using it are always
// mounted behind the guard, so a missing user is a wiring bug.
func currentUser(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		log.Error().Str("path", r.URL.Path).Msg("Could not retrieve user from context")
		writeMessage(w, http.StatusUnauthorized, "Not authorized")
	}
	return user, ok
}
