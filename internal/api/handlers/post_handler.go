package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/opensocial-be/internal/services"
)

// PostHandler handles HTTP requests for posts, likes and comments.
type PostHandler struct {
	service        services.PostServiceProvider
	maxUploadBytes int64
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(service services.PostServiceProvider, maxUploadBytes int64) *PostHandler {
	return &PostHandler{service: service, maxUploadBytes: maxUploadBytes}
}

type likeResponse struct {
	Message string `json:"message"`
	Liked   bool   `json:"liked"`
}

// List handles the public feed.
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// Create handles a new post from multipart or JSON input.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	f, err := readForm(w, r, h.maxUploadBytes, "image", "video")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, formErrorMessage(err))
		return
	}
	if hasMediaURL(f) {
		writeMessage(w, http.StatusBadRequest, "Media must be uploaded as a file")
		return
	}

	text, _ := f.value("text")
	post, err := h.service.Create(r.Context(), user.ID, services.NewPost{
		Text:  text,
		Image: f.file("image"),
		Video: f.file("video"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// Edit handles changes to a post. A sent but empty image or video clears it.
func (h *PostHandler) Edit(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	f, err := readForm(w, r, h.maxUploadBytes, "image", "video")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, formErrorMessage(err))
		return
	}

	in := services.PostEdit{Image: f.file("image"), Video: f.file("video"), MediaURL: hasMediaURL(f)}
	if text, ok := f.value("text"); ok {
		in.Text = &text
	}
	_, in.ClearImage = f.value("image")
	_, in.ClearVideo = f.value("video")

	post, err := h.service.Edit(r.Context(), user.ID, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// Delete handles removing a post.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Post removed")
}

// ToggleLike likes or unlikes a post for the current user.
func (h *PostHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	liked, err := h.service.ToggleLike(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg := "Post unliked"
	if liked {
		msg = "Post liked"
	}
	writeJSON(w, http.StatusOK, likeResponse{Message: msg, Liked: liked})
}

// AddComment handles a new comment on a post.
func (h *PostHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	f, err := readForm(w, r, h.maxUploadBytes)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, formErrorMessage(err))
		return
	}
	text, _ := f.value("text")

	post, err := h.service.AddComment(r.Context(), user.ID, chi.URLParam(r, "id"), text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// EditComment handles replacing the text of the current user's comment.
func (h *PostHandler) EditComment(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	f, err := readForm(w, r, h.maxUploadBytes)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, formErrorMessage(err))
		return
	}
	text, _ := f.value("text")

	post, err := h.service.EditComment(r.Context(), user.ID, chi.URLParam(r, "id"), chi.URLParam(r, "commentId"), text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// hasMediaURL reports image or video sent as a non-empty string: media only
// enters the system through the upload pipeline.
func hasMediaURL(f *form) bool {
	for _, name := range []string{"image", "video"} {
		if v, ok := f.value(name); ok && v != "" {
			return true
		}
	}
	return false
}
