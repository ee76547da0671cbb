package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/xelth-com/mprgo/internal/apperr"
	"github.com/xelth-com/mprgo/internal/services/photos"
)

// uploadPhoto accepts either the raw image as the request body or a
// multipart form with a "file" field
func (r *Router) uploadPhoto(w http.ResponseWriter, req *http.Request) {
	req.Body = http.MaxBytesReader(w, req.Body, photos.MaxUploadSize+1<<20)

	body := io.Reader(req.Body)
	if mediaType, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type")); mediaType == "multipart/form-data" {
		file, _, err := req.FormFile("file")
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			r.respondError(w, req, apperr.TooLarge("photo exceeds %d bytes", photos.MaxUploadSize))
			return
		}
		if err != nil {
			r.respondError(w, req, apperr.Validation("multipart upload needs a file field: %v", err))
			return
		}
		defer file.Close()
		body = file
	}

	photo, err := r.Photos.Upload(req.Context(), caller(req), mux.Vars(req)["visitUuid"], body)
	if err != nil {
		r.respondError(w, req, err)
		return
	}
	respondJSON(w, http.StatusCreated, photo)
}

func (r *Router) listPhotos(w http.ResponseWriter, req *http.Request) {
	list, err := r.Photos.List(req.Context(), caller(req), mux.Vars(req)["visitUuid"])
	if err != nil {
		r.respondError(w, req, err)
		return
	}
	respondList(w, list)
}

// downloadPhoto streams the original, or the thumbnail with ?size=thumb
func (r *Router) downloadPhoto(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	thumb := req.URL.Query().Get("size") == "thumb"

	photo, contentType, rc, err := r.Photos.Open(req.Context(), caller(req), vars["visitUuid"], vars["photoUuid"], thumb)
	if err != nil {
		r.respondError(w, req, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	if !thumb || photo.ThumbKey == "" {
		w.Header().Set("Content-Length", strconv.FormatInt(photo.Size, 10))
	}
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		r.Log.Warn("photo download interrupted", zap.String("photo", photo.UUID), zap.Error(err))
	}
}
