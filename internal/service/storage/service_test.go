package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"carecall-backend/internal/domain"
	"carecall-backend/internal/repository/postgres"
	apperrors "carecall-backend/pkg/errors"
)

// MockObjectStore is a mock implementation of ObjectStore
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func (m *MockObjectStore) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	args := m.Called(ctx, bucketName, objectName, opts)
	return args.Error(0)
}

func (m *MockObjectStore) PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams map[string][]string) (fmt.Stringer, error) {
	args := m.Called(ctx, bucketName, objectName, expires, reqParams)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(fmt.Stringer), args.Error(1)
}

// MockProfileRepository is a mock implementation of ProfileRepository
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ElderlyProfile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ElderlyProfile), args.Error(1)
}

func (m *MockProfileRepository) Update(ctx context.Context, id uuid.UUID, u *postgres.ProfileUpdate) (*domain.ElderlyProfile, error) {
	args := m.Called(ctx, id, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ElderlyProfile), args.Error(1)
}

type stringerURL string

func (s stringerURL) String() string { return string(s) }

func newTestService() (*Service, *MockObjectStore, *MockProfileRepository) {
	store := new(MockObjectStore)
	profiles := new(MockProfileRepository)
	return NewService(store, "care-avatars", profiles), store, profiles
}

func TestUploadAvatar(t *testing.T) {
	svc, store, profiles := newTestService()

	profileID := uuid.New()
	profiles.On("GetByID", mock.Anything, profileID).
		Return(&domain.ElderlyProfile{ID: profileID}, nil)

	store.On("PutObject", mock.Anything, "care-avatars", mock.MatchedBy(func(key string) bool {
		return len(key) > 0 && key[:8] == "avatars/"
	}), mock.Anything, int64(1024), mock.AnythingOfType("minio.PutObjectOptions")).
		Return(minio.UploadInfo{}, nil)

	var savedKey string
	profiles.On("Update", mock.Anything, profileID, mock.MatchedBy(func(u *postgres.ProfileUpdate) bool {
		if u.AvatarURL == nil {
			return false
		}
		savedKey = *u.AvatarURL
		return true
	})).Return(&domain.ElderlyProfile{ID: profileID}, nil)

	p, err := svc.UploadAvatar(context.Background(), profileID, bytes.NewReader(make([]byte, 1024)), 1024, "image/png")

	require.NoError(t, err)
	assert.Equal(t, profileID, p.ID)
	assert.Contains(t, savedKey, "avatars/"+profileID.String()+"/")
	assert.Contains(t, savedKey, ".png")
	store.AssertExpectations(t)
}

func TestUploadAvatar_UnsupportedContentType(t *testing.T) {
	svc, store, _ := newTestService()

	p, err := svc.UploadAvatar(context.Background(), uuid.New(), bytes.NewReader(nil), 10, "application/pdf")

	assert.Nil(t, p)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetAppError(err).Code)
	store.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadAvatar_TooLarge(t *testing.T) {
	svc, _, _ := newTestService()

	p, err := svc.UploadAvatar(context.Background(), uuid.New(), bytes.NewReader(nil), maxAvatarSize+1, "image/jpeg")

	assert.Nil(t, p)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetAppError(err).Code)
}

func TestUploadAvatar_ProfileNotFound(t *testing.T) {
	svc, store, profiles := newTestService()

	profileID := uuid.New()
	profiles.On("GetByID", mock.Anything, profileID).Return(nil, postgres.ErrNotFound)

	p, err := svc.UploadAvatar(context.Background(), profileID, bytes.NewReader(nil), 10, "image/jpeg")

	assert.Nil(t, p)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeProfileNotFound, apperrors.GetAppError(err).Code)
	store.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAvatarURL_Presigned(t *testing.T) {
	svc, store, profiles := newTestService()

	profileID := uuid.New()
	key := "avatars/" + profileID.String() + "/x.png"
	profiles.On("GetByID", mock.Anything, profileID).
		Return(&domain.ElderlyProfile{ID: profileID, AvatarURL: &key}, nil)
	store.On("PresignedGetObject", mock.Anything, "care-avatars", key, time.Hour, mock.Anything).
		Return(stringerURL("https://minio.local/signed"), nil)

	url, err := svc.AvatarURL(context.Background(), profileID, time.Hour)

	require.NoError(t, err)
	assert.Equal(t, "https://minio.local/signed", url)
}

func TestAvatarURL_ExternalPassthrough(t *testing.T) {
	svc, store, profiles := newTestService()

	profileID := uuid.New()
	external := "https://cdn.example.com/anna.png"
	profiles.On("GetByID", mock.Anything, profileID).
		Return(&domain.ElderlyProfile{ID: profileID, AvatarURL: &external}, nil)

	url, err := svc.AvatarURL(context.Background(), profileID, time.Hour)

	require.NoError(t, err)
	assert.Equal(t, external, url)
	store.AssertNotCalled(t, "PresignedGetObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAvatarURL_NoAvatar(t *testing.T) {
	svc, _, profiles := newTestService()

	profileID := uuid.New()
	profiles.On("GetByID", mock.Anything, profileID).
		Return(&domain.ElderlyProfile{ID: profileID}, nil)

	url, err := svc.AvatarURL(context.Background(), profileID, time.Hour)

	assert.Empty(t, url)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetAppError(err).Code)
}

func TestDeleteAvatar(t *testing.T) {
	svc, store, profiles := newTestService()

	profileID := uuid.New()
	key := "avatars/" + profileID.String() + "/x.png"
	profiles.On("GetByID", mock.Anything, profileID).
		Return(&domain.ElderlyProfile{ID: profileID, AvatarURL: &key}, nil)
	store.On("RemoveObject", mock.Anything, "care-avatars", key, mock.AnythingOfType("minio.RemoveObjectOptions")).
		Return(nil)
	profiles.On("Update", mock.Anything, profileID, mock.MatchedBy(func(u *postgres.ProfileUpdate) bool {
		return u.AvatarURL != nil && *u.AvatarURL == ""
	})).Return(&domain.ElderlyProfile{ID: profileID}, nil)

	err := svc.DeleteAvatar(context.Background(), profileID)

	require.NoError(t, err)
	store.AssertExpectations(t)
	profiles.AssertExpectations(t)
}
