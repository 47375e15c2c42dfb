package storage

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// DetectContentType determines the MIME type of a file.
//
// Detection priority:
// 1. providedType, when non-empty
// 2. the file extension
// 3. sniffing the first 512 bytes of data, when given
// 4. "application/octet-stream"
func DetectContentType(providedType, filename string, data io.Reader) string {
	if providedType != "" {
		return providedType
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if contentType := mime.TypeByExtension(ext); contentType != "" {
		return contentType
	}

	if data != nil {
		buffer := make([]byte, 512)
		n, err := io.ReadFull(data, buffer)
		if err == nil || err == io.EOF || err == io.ErrUnexpectedEOF {
			return http.DetectContentType(buffer[:n])
		}
	}

	return "application/octet-stream"
}

// SniffContentType inspects the leading bytes of an upload. Client-supplied
// Content-Type headers are not trusted for validation.
func SniffContentType(data []byte) string {
	if len(data) > 512 {
		data = data[:512]
	}
	return baseType(http.DetectContentType(data))
}

// ProfileImageTypes are the formats accepted for profile pictures; all of
// them decode with the standard image codecs.
var ProfileImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// IsProfileImageType reports whether contentType is an accepted avatar format.
func IsProfileImageType(contentType string) bool {
	return ProfileImageTypes[baseType(contentType)]
}

// attachmentTypes lists what may be attached to outreach email.
var attachmentTypes = typeSet(
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"application/zip",
)

func typeSet(types ...string) map[string]bool {
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}

// IsAllowedAttachmentType reports whether contentType may be attached to an
// email. Office documents sniff as application/zip, which is allowed.
func IsAllowedAttachmentType(contentType string) bool {
	return attachmentTypes[baseType(contentType)]
}

func baseType(contentType string) string {
	return strings.TrimSpace(strings.ToLower(strings.Split(contentType, ";")[0]))
}
