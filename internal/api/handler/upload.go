package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// spoolFormFile copies an uploaded part to a local temp file and returns its
// path plus a cleanup func. The media store takes local paths, so uploads
// are spooled through disk; cleanup always runs, whether or not the upload
// to durable storage succeeds.
func spoolFormFile(fh *multipart.FileHeader) (string, func(), error) {
	src, err := fh.Open()
	if err != nil {
		return "", nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "upload-*"+filepath.Ext(fh.Filename))
	if err != nil {
		return "", nil, fmt.Errorf("spool upload: %w", err)
	}

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("spool upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("spool upload: %w", err)
	}

	cleanup := func() { _ = os.Remove(tmp.Name()) }
	return tmp.Name(), cleanup, nil
}
