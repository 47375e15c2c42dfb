package service

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/DukeRupert/nexleads/internal/domain"
	"github.com/DukeRupert/nexleads/internal/storage"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// ProfilePictureService processes and stores profile pictures.
type ProfilePictureService interface {
	// Upload crops the image to a square, stores it as JPEG and saves its URL
	// on the user. Non-image data fails with domain.EINVALID.
	Upload(ctx context.Context, userID uuid.UUID, data []byte) (*domain.User, error)
}

// ProfilePictureUsers is the part of UserService the upload needs.
type ProfilePictureUsers interface {
	UpdateProfilePicture(ctx context.Context, userID uuid.UUID, url string) (*domain.User, error)
}

type profilePictureService struct {
	users  ProfilePictureUsers
	files  storage.Storage
	logger *slog.Logger
}

// NewProfilePictureService creates a new ProfilePictureService.
func NewProfilePictureService(users ProfilePictureUsers, files storage.Storage, logger *slog.Logger) ProfilePictureService {
	return &profilePictureService{
		users:  users,
		files:  files,
		logger: logger,
	}
}

func (s *profilePictureService) Upload(ctx context.Context, userID uuid.UUID, data []byte) (*domain.User, error) {
	const op = "user.profile_picture"

	if len(data) == 0 {
		return nil, domain.Invalid(op, "Profile picture is required")
	}
	if len(data) > domain.MaxProfilePictureSize {
		return nil, domain.Errorf(domain.ETOOLARGE, op, "Profile picture must be 5 MB or smaller")
	}
	if !storage.IsProfileImageType(storage.SniffContentType(data)) {
		return nil, domain.Invalid(op, "Only image files are allowed")
	}

	jpeg, err := squareJPEG(data, domain.ProfilePictureSize)
	if err != nil {
		return nil, domain.Invalid(op, "Could not read image")
	}

	key := storage.ProfilePictureKey(userID)
	if err := s.files.Put(ctx, key, bytes.NewReader(jpeg), storage.PutOptions{
		ContentType: "image/jpeg",
		Public:      true,
	}); err != nil {
		return nil, domain.Internal(err, op, "Failed to store profile picture")
	}

	url, err := s.files.URL(ctx, key, 0)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to store profile picture")
	}

	user, err := s.users.UpdateProfilePicture(ctx, userID, url)
	if err != nil {
		if delErr := s.files.Delete(ctx, key); delErr != nil {
			s.logger.Warn("failed to remove orphaned profile picture", "key", key, "error", delErr)
		}
		return nil, err
	}

	s.logger.Info("profile picture updated", "user_id", userID, "bytes", len(jpeg))
	return user, nil
}

// squareJPEG decodes an image, honoring EXIF orientation, center-crops it to
// size x size and encodes it as JPEG.
func squareJPEG(data []byte, size int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}

	square := imaging.Fill(img, size, size, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, square, imaging.JPEG, imaging.JPEGQuality(domain.ProfilePictureJPEGQuality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
