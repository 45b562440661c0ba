package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizhub-backend/internal/config"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/storage"
)

// Allowed image MIME types.
var allowedMIMETypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// MediaService validates question images and decides where their bytes live:
// object storage when configured, the questions table otherwise.
type MediaService struct {
	cfg     *config.Config
	objects ObjectStore
	log     zerolog.Logger
}

// NewMediaService creates a new MediaService. objects may be nil.
func NewMediaService(cfg *config.Config, objects ObjectStore, log zerolog.Logger) *MediaService {
	return &MediaService{
		cfg:     cfg,
		objects: objects,
		log:     log.With().Str("component", "media_service").Logger(),
	}
}

// Inspect checks an upload's size and sniffed content type.
func (s *MediaService) Inspect(img model.UploadedImage) (string, error) {
	if img.Size > s.cfg.MaxUploadBytes || int64(len(img.Data)) > s.cfg.MaxUploadBytes {
		return "", fmt.Errorf("%w: %s is %d bytes (max: %d)", ErrFileTooLarge, img.Filename, len(img.Data), s.cfg.MaxUploadBytes)
	}

	contentType := mimetype.Detect(img.Data).String()
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	if _, ok := allowedMIMETypes[contentType]; !ok {
		return "", fmt.Errorf("%w: %s is %s (allowed: %s)",
			ErrUnsupportedFileType, img.Filename, contentType, strings.Join(allowedTypes(), ", "))
	}
	return contentType, nil
}

// Store persists an inspected image. With object storage the bytes are uploaded and
// only the key is kept; otherwise the bytes travel to the database with the question.
func (s *MediaService) Store(ctx context.Context, img model.UploadedImage, contentType string) (*model.QuestionImage, error) {
	if s.objects == nil {
		return &model.QuestionImage{Data: img.Data, ContentType: contentType}, nil
	}

	key := "question-images/" + uuid.NewString() + allowedMIMETypes[contentType]
	if err := s.objects.Put(ctx, key, contentType, img.Data); err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}
	return &model.QuestionImage{ContentType: contentType, Key: key}, nil
}

// Load returns the image bytes, fetching from object storage when the row only holds a key.
func (s *MediaService) Load(ctx context.Context, img *model.QuestionImage) ([]byte, error) {
	if img.Key == "" {
		return img.Data, nil
	}
	if s.objects == nil {
		return nil, fmt.Errorf("image %s is in object storage but none is configured", img.Key)
	}
	data, err := s.objects.Get(ctx, img.Key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Remove deletes stored objects. Failures are logged, not returned.
func (s *MediaService) Remove(ctx context.Context, keys []string) {
	if s.objects == nil || len(keys) == 0 {
		return
	}
	if err := s.objects.Delete(ctx, keys...); err != nil {
		s.log.Warn().Err(err).Int("count", len(keys)).Msg("Failed to remove images")
	}
}

func allowedTypes() []string {
	types := make([]string, 0, len(allowedMIMETypes))
	for t := range allowedMIMETypes {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
