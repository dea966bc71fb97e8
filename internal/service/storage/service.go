package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"carecall-backend/internal/domain"
	"carecall-backend/internal/repository/postgres"
	apperrors "carecall-backend/pkg/errors"
	"carecall-backend/pkg/logger"
)

const maxAvatarSize = 5 * 1024 * 1024

var avatarExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// ObjectStore is the object storage surface the storage service needs
type ObjectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams map[string][]string) (fmt.Stringer, error)
}

// ProfileRepository is the profile store surface the storage service needs
type ProfileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ElderlyProfile, error)
	Update(ctx context.Context, id uuid.UUID, u *postgres.ProfileUpdate) (*domain.ElderlyProfile, error)
}

// Service handles profile avatar storage in MinIO
type Service struct {
	store    ObjectStore
	bucket   string
	profiles ProfileRepository
}

// NewService creates a storage service on an existing object store
func NewService(store ObjectStore, bucket string, profiles ProfileRepository) *Service {
	return &Service{store: store, bucket: bucket, profiles: profiles}
}

// NewMinioService connects to MinIO and ensures the bucket exists
func NewMinioService(endpoint, accessKey, secretKey, bucket string, useSSL bool, profiles ProfileRepository) (*Service, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Service{store: &minioStore{client: client}, bucket: bucket, profiles: profiles}, nil
}

// minioStore adapts *minio.Client to ObjectStore
type minioStore struct {
	client *minio.Client
}

func (s *minioStore) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return s.client.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
}

func (s *minioStore) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return s.client.RemoveObject(ctx, bucketName, objectName, opts)
}

func (s *minioStore) PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams map[string][]string) (fmt.Stringer, error) {
	return s.client.PresignedGetObject(ctx, bucketName, objectName, expires, reqParams)
}

// UploadAvatar stores an avatar image for a profile and records the object
// key as the profile's avatar URL. Any previous avatar object is left in
// place; the profile simply points at the new one.
func (s *Service) UploadAvatar(ctx context.Context, profileID uuid.UUID, reader io.Reader, size int64, contentType string) (*domain.ElderlyProfile, error) {
	ext, ok := avatarExtensions[contentType]
	if !ok {
		return nil, apperrors.InvalidInputError(fmt.Sprintf("unsupported avatar content type %q", contentType))
	}
	if size <= 0 || size > maxAvatarSize {
		return nil, apperrors.InvalidInputError("avatar must be between 1 byte and 5 MB")
	}

	if _, err := s.profiles.GetByID(ctx, profileID); err != nil {
		if err == postgres.ErrNotFound {
			return nil, apperrors.ProfileNotFoundError()
		}
		return nil, apperrors.DatabaseError(err)
	}

	objectKey := fmt.Sprintf("avatars/%s/%s.%s", profileID, uuid.New(), ext)

	_, err := s.store.PutObject(ctx, s.bucket, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, apperrors.StorageError(err)
	}

	updated, err := s.profiles.Update(ctx, profileID, &postgres.ProfileUpdate{AvatarURL: &objectKey})
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	logger.Info("avatar uploaded",
		zap.String("profile_id", profileID.String()),
		zap.String("object_key", objectKey),
	)

	return updated, nil
}

// AvatarURL generates a presigned download URL for a profile's avatar
func (s *Service) AvatarURL(ctx context.Context, profileID uuid.UUID, expires time.Duration) (string, error) {
	p, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		if err == postgres.ErrNotFound {
			return "", apperrors.ProfileNotFoundError()
		}
		return "", apperrors.DatabaseError(err)
	}

	if p.AvatarURL == nil || *p.AvatarURL == "" {
		return "", apperrors.NotFoundError("Avatar")
	}

	// Externally-hosted avatars are returned as-is
	if strings.HasPrefix(*p.AvatarURL, "http://") || strings.HasPrefix(*p.AvatarURL, "https://") {
		return *p.AvatarURL, nil
	}

	url, err := s.store.PresignedGetObject(ctx, s.bucket, *p.AvatarURL, expires, nil)
	if err != nil {
		return "", apperrors.StorageError(err)
	}

	return url.String(), nil
}

// DeleteAvatar removes a profile's avatar object and clears the reference
func (s *Service) DeleteAvatar(ctx context.Context, profileID uuid.UUID) error {
	p, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		if err == postgres.ErrNotFound {
			return apperrors.ProfileNotFoundError()
		}
		return apperrors.DatabaseError(err)
	}

	if p.AvatarURL == nil || *p.AvatarURL == "" {
		return apperrors.NotFoundError("Avatar")
	}

	if !strings.HasPrefix(*p.AvatarURL, "http") {
		if err := s.store.RemoveObject(ctx, s.bucket, *p.AvatarURL, minio.RemoveObjectOptions{}); err != nil {
			return apperrors.StorageError(err)
		}
	}

	empty := ""
	if _, err := s.profiles.Update(ctx, profileID, &postgres.ProfileUpdate{AvatarURL: &empty}); err != nil {
		return apperrors.DatabaseError(err)
	}

	return nil
}
