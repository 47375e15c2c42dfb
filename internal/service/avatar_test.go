package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/DukeRupert/nexleads/internal/domain"
	"github.com/DukeRupert/nexleads/internal/storage"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPictureUsers struct {
	UpdateProfilePictureFunc func(ctx context.Context, userID uuid.UUID, url string) (*domain.User, error)
	urls                     []string
}

func (m *mockPictureUsers) UpdateProfilePicture(ctx context.Context, userID uuid.UUID, url string) (*domain.User, error) {
	m.urls = append(m.urls, url)
	if m.UpdateProfilePictureFunc != nil {
		return m.UpdateProfilePictureFunc(ctx, userID, url)
	}
	return &domain.User{ID: userID, ProfilePicture: url}, nil
}

func newPictureTestService(t *testing.T, users *mockPictureUsers) (*profilePictureService, *storage.LocalStorage) {
	t.Helper()
	files, err := storage.NewLocalStorage(storage.LocalConfig{
		BasePath: t.TempDir(),
		BaseURL:  "http://localhost:8080/files",
	}, newTestLogger())
	require.NoError(t, err)
	return NewProfilePictureService(users, files, newTestLogger()).(*profilePictureService), files
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProfilePictureService_Upload(t *testing.T) {
	users := &mockPictureUsers{}
	svc, files := newPictureTestService(t, users)
	userID := uuid.New()

	user, err := svc.Upload(context.Background(), userID, testPNG(t, 640, 320))
	require.NoError(t, err)

	require.Len(t, users.urls, 1)
	assert.Equal(t, users.urls[0], user.ProfilePicture)
	assert.True(t, strings.HasPrefix(user.ProfilePicture, "http://localhost:8080/files/users/"+userID.String()+"/avatar/"))
	assert.True(t, strings.HasSuffix(user.ProfilePicture, ".jpg"))

	key := strings.TrimPrefix(user.ProfilePicture, "http://localhost:8080/files/")
	rc, info, err := files.Get(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, "image/jpeg", info.ContentType)

	stored, err := imaging.Decode(rc)
	require.NoError(t, err)
	assert.Equal(t, domain.ProfilePictureSize, stored.Bounds().Dx())
	assert.Equal(t, domain.ProfilePictureSize, stored.Bounds().Dy())
}

func TestProfilePictureService_Upload_Rejections(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		code string
	}{
		{"empty", nil, domain.EINVALID},
		{"too large", append(testPNG(t, 4, 4), make([]byte, domain.MaxProfilePictureSize)...), domain.ETOOLARGE},
		{"not an image", []byte("%PDF-1.4 not a picture"), domain.EINVALID},
		{"corrupt png", append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...), domain.EINVALID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &mockPictureUsers{}
			svc, _ := newPictureTestService(t, users)

			_, err := svc.Upload(context.Background(), uuid.New(), tt.data)
			require.Error(t, err)
			assert.Equal(t, tt.code, domain.ErrorCode(err))
			assert.Empty(t, users.urls)
		})
	}
}

func TestProfilePictureService_Upload_UserUpdateFails(t *testing.T) {
	users := &mockPictureUsers{
		UpdateProfilePictureFunc: func(context.Context, uuid.UUID, string) (*domain.User, error) {
			return nil, domain.Internal(errors.New("db down"), "user.update_profile_picture", "Failed to update profile picture")
		},
	}
	svc, files := newPictureTestService(t, users)

	_, err := svc.Upload(context.Background(), uuid.New(), testPNG(t, 32, 32))
	require.Error(t, err)
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))

	require.Len(t, users.urls, 1)
	key := strings.TrimPrefix(users.urls[0], "http://localhost:8080/files/")
	exists, err := files.Exists(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, exists, "stored picture should be removed")
}
