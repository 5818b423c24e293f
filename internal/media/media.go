// Package media stores profile pictures and returns a reference to them.
package media

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/tagzilla/internal/common"
)

const MaxPictureSize = 5 << 20

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Store persists an image for an account and returns where it went.
type Store interface {
	Save(ctx context.Context, accountID, contentType string, data []byte) (string, error)
}

// Validate checks size and type and returns the file extension to use.
// An empty content type is sniffed from the data.
func Validate(accountID, contentType string, data []byte) (string, error) {
	if accountID == "" || accountID != filepath.Base(accountID) || strings.HasPrefix(accountID, ".") {
		return "", fmt.Errorf("%w: bad account id", common.ErrValidation)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: picture is empty", common.ErrValidation)
	}
	if len(data) > MaxPictureSize {
		return "", fmt.Errorf("%w: picture exceeds %d bytes", common.ErrValidation, MaxPictureSize)
	}

	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("%w: content type %q: %w", common.ErrValidation, contentType, err)
	}

	ext, ok := extensions[mt]
	if !ok {
		return "", fmt.Errorf("%w: unsupported content type %q", common.ErrValidation, mt)
	}
	return ext, nil
}
