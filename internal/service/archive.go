package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/klauspost/compress/zip"

	"sgxfeed/internal/storage"
)

type extraction struct {
	paths    []string
	warnings []string
	bytes    int64
}

// extractArchive stores every member of a zip payload under derivative_data/{date}/.
// A payload that is not a readable zip is an error; a bad member only adds a warning.
func extractArchive(ctx context.Context, store storage.Storage, data []byte, businessDate time.Time) (extraction, error) {
	var out extraction

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if zr == nil {
		return out, fmt.Errorf("open archive: %w", err)
	}
	if err != nil {
		// insecure member names; DerivedKey rejects them one by one
		out.warnings = append(out.warnings, err.Error())
	}

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		key, err := storage.DerivedKey(businessDate, f.Name)
		if err != nil {
			out.warnings = append(out.warnings, err.Error())
			continue
		}

		rc, err := f.Open()
		if err != nil {
			out.warnings = append(out.warnings, fmt.Sprintf("open member %s: %v", f.Name, err))
			continue
		}
		info, err := store.Put(ctx, key, rc, storage.PutObjectOptions{
			Size:        int64(f.UncompressedSize64),
			ContentType: contentType(f.Name),
		})
		rc.Close()
		if err != nil {
			out.warnings = append(out.warnings, fmt.Sprintf("store member %s: %v", f.Name, err))
			continue
		}
		out.paths = append(out.paths, key)
		out.bytes += info.Size
	}
	return out, nil
}
