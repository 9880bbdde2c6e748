package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/opensocial-be/internal/services"
)

// UserHandler handles HTTP requests for profiles and the follow graph.
type UserHandler struct {
	users          services.UserServiceProvider
	social         services.SocialServiceProvider
	maxUploadBytes int64
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users services.UserServiceProvider, social services.SocialServiceProvider, maxUploadBytes int64) *UserHandler {
	return &UserHandler{users: users, social: social, maxUploadBytes: maxUploadBytes}
}

// Profile handles retrieving a public profile by username.
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.FindByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Update handles updating the current user's bio and images.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	f, err := readForm(w, r, h.maxUploadBytes, "profileImg", "coverImg")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, formErrorMessage(err))
		return
	}

	upd := services.ProfileUpdate{
		ProfileImage: f.file("profileImg"),
		CoverImage:   f.file("coverImg"),
	}
	if bio, ok := f.value("bio"); ok {
		upd.Bio = &bio
	}

	updated, err := h.users.UpdateProfile(r.Context(), user.ID, upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Follow makes the current user follow the user in the path.
func (h *UserHandler) Follow(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.social.Follow(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "User followed")
}

// Unfollow removes the current user's follow of the user in the path.
func (h *UserHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.social.Unfollow(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "User unfollowed")
}
