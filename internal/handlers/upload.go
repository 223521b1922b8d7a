package handlers

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/videotube/backend/internal/logging"
)

// maxUploadBytes bounds the in-memory portion of multipart parsing.
const maxUploadBytes = 32 << 20

// saveTempFile spools an uploaded multipart part to a temp file and returns
// its path. The media store removes the file once it has consumed it.
func saveTempFile(header *multipart.FileHeader) (string, error) {
	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %s: %w", header.Filename, err)
	}
	defer src.Close()

	ext := filepath.Ext(header.Filename)
	dst, err := os.CreateTemp("", "videotube-upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("spool upload %s: %w", header.Filename, err)
	}

	if err := dst.Close(); err != nil {
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return dst.Name(), nil
}

// uploadFormFile pushes the named multipart file through the media store.
// A missing part returns ("", false, nil); upload failures are reported so
// the caller decides whether the part was mandatory.
func uploadFormFile(ctx context.Context, media MediaStore, r *http.Request, field, prefix string) (string, bool, error) {
	_, header, err := r.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read %s part: %w", field, err)
	}

	path, err := saveTempFile(header)
	if err != nil {
		return "", true, err
	}

	url, err := media.UploadFile(ctx, path, prefix)
	if err != nil {
		logging.FromContext(ctx).Warn("media upload failed", "field", field, "error", err)
		return "", true, err
	}

	return url, true, nil
}
