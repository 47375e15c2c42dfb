// Package domain contains core business types and interfaces.
//
// This file defines profile picture processing limits.
package domain

const (
	// MaxProfilePictureSize is the upload limit for profile pictures in bytes.
	MaxProfilePictureSize = 5 << 20

	// ProfilePictureSize is the edge length of the stored square picture.
	ProfilePictureSize = 256

	// ProfilePictureJPEGQuality is the JPEG quality of stored pictures (0-100).
	ProfilePictureJPEGQuality = 85
)
