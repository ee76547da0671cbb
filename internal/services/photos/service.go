package photos

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xelth-com/mprgo/internal/apperr"
	"github.com/xelth-com/mprgo/internal/identity"
	"github.com/xelth-com/mprgo/internal/models"
	"github.com/xelth-com/mprgo/internal/repository"
)

// MaxUploadSize bounds a single photo upload
const MaxUploadSize = 20 << 20

// VisitLoader returns a visit after checking that caller may see it
type VisitLoader interface {
	Load(ctx context.Context, caller identity.Caller, id string) (*models.Visit, error)
}

// Service stores visit photos and their thumbnails
type Service struct {
	store  repository.PhotoStore
	visits VisitLoader
	blobs  BlobStore
	log    *zap.Logger
}

func NewService(store repository.PhotoStore, visits VisitLoader, blobs BlobStore, log *zap.Logger) *Service {
	return &Service{store: store, visits: visits, blobs: blobs, log: log}
}

// checkVisit authorizes access to the photos of visitUUID. Photos outlive
// their visit, so a missing visit only blocks agents and uploads.
func (s *Service) checkVisit(ctx context.Context, caller identity.Caller, visitUUID string, upload bool) error {
	if _, err := uuid.Parse(visitUUID); err != nil {
		return apperr.Validation("visit id %q is not a UUID", visitUUID)
	}
	_, err := s.visits.Load(ctx, caller, visitUUID)
	if apperr.Is(err, apperr.KindNotFound) && !upload && !caller.Role.OwnVisitsOnly() {
		return nil
	}
	return err
}

// Upload stores the blob read from r and returns its metadata
func (s *Service) Upload(ctx context.Context, caller identity.Caller, visitUUID string, r io.Reader) (*models.Photo, error) {
	if err := s.checkVisit(ctx, caller, visitUUID, true); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) || len(data) > MaxUploadSize {
		return nil, apperr.TooLarge("photo exceeds %d bytes", MaxUploadSize)
	}
	if err != nil {
		return nil, apperr.Validation("failed to read upload: %v", err)
	}
	if len(data) == 0 {
		return nil, apperr.Validation("photo body is empty")
	}

	info, err := inspect(data)
	if err != nil {
		s.log.Warn("photo stored without thumbnail", zap.String("visit", visitUUID), zap.Error(err))
	}

	id := uuid.NewString()
	photo := &models.Photo{
		UUID:        id,
		VisitUUID:   visitUUID,
		ContentType: info.contentType,
		Size:        int64(len(data)),
		Width:       info.width,
		Height:      info.height,
		BlobKey:     visitUUID + "/" + id,
		UploadedBy:  caller.ExternalKey(),
	}

	if err := s.blobs.Put(ctx, photo.BlobKey, bytes.NewReader(data)); err != nil {
		return nil, apperr.Internal(err, "failed to store photo")
	}
	if info.thumb != nil {
		photo.ThumbKey = photo.BlobKey + ".thumb.jpg"
		if err := s.blobs.Put(ctx, photo.ThumbKey, bytes.NewReader(info.thumb)); err != nil {
			s.removeBlobs(photo.BlobKey)
			return nil, apperr.Internal(err, "failed to store thumbnail")
		}
	}

	if err := s.store.CreatePhoto(ctx, photo); err != nil {
		s.removeBlobs(photo.BlobKey, photo.ThumbKey)
		return nil, apperr.Internal(err, "failed to save photo")
	}

	s.log.Info("photo uploaded",
		zap.String("visit", visitUUID),
		zap.String("photo", id),
		zap.String("content_type", photo.ContentType),
		zap.Int64("size", photo.Size),
	)
	return photo, nil
}

// removeBlobs drops blobs written for an upload that did not complete
func (s *Service) removeBlobs(keys ...string) {
	ctx := context.Background()
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.log.Warn("failed to remove orphaned photo blob", zap.String("key", key), zap.Error(err))
		}
	}
}

// List returns the photos of a visit in upload order
func (s *Service) List(ctx context.Context, caller identity.Caller, visitUUID string) ([]models.Photo, error) {
	if err := s.checkVisit(ctx, caller, visitUUID, false); err != nil {
		return nil, err
	}
	photos, err := s.store.ListPhotos(ctx, visitUUID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list photos")
	}
	if photos == nil {
		photos = []models.Photo{}
	}
	return photos, nil
}

// Open returns the photo metadata and a reader for the original or, when
// thumb is set, the thumbnail. Blobs without a thumbnail fall back to the
// original. The caller closes the reader.
func (s *Service) Open(ctx context.Context, caller identity.Caller, visitUUID, photoUUID string, thumb bool) (*models.Photo, string, io.ReadCloser, error) {
	if err := s.checkVisit(ctx, caller, visitUUID, false); err != nil {
		return nil, "", nil, err
	}
	if _, err := uuid.Parse(photoUUID); err != nil {
		return nil, "", nil, apperr.Validation("photo id %q is not a UUID", photoUUID)
	}

	photo, err := s.store.PhotoByUUID(ctx, photoUUID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && photo.VisitUUID != visitUUID) {
		return nil, "", nil, apperr.NotFound("photo %s not found", photoUUID)
	}
	if err != nil {
		return nil, "", nil, apperr.Internal(err, "failed to load photo")
	}

	key, contentType := photo.BlobKey, photo.ContentType
	if thumb && photo.ThumbKey != "" {
		key, contentType = photo.ThumbKey, "image/jpeg"
	}

	rc, err := s.blobs.Open(ctx, key)
	if errors.Is(err, ErrBlobNotFound) {
		s.log.Error("photo blob missing", zap.String("photo", photoUUID), zap.String("key", key))
		return nil, "", nil, apperr.NotFound("photo %s content is missing", photoUUID)
	}
	if err != nil {
		return nil, "", nil, apperr.Internal(err, "failed to open photo")
	}
	return photo, contentType, rc, nil
}
