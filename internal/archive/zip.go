package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/phpscreening/screener/internal/screening"
)

// Zip builds deflate-compressed zip archives.
type Zip struct {
	// Modified stamps every entry; zero means the time of the build.
	Modified time.Time
}

// Build writes blobs into a zip archive in the given order.
func (z Zip) Build(blobs []screening.NamedBlob) ([]byte, error) {
	if len(blobs) == 0 {
		return nil, errors.New("no entries")
	}
	modified := z.Modified
	if modified.IsZero() {
		modified = time.Now()
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	seen := make(map[string]struct{}, len(blobs))
	for _, b := range blobs {
		if b.Name == "" {
			return nil, errors.New("entry without name")
		}
		if _, dup := seen[b.Name]; dup {
			return nil, fmt.Errorf("duplicate entry %q", b.Name)
		}
		seen[b.Name] = struct{}{}

		f, err := w.CreateHeader(&zip.FileHeader{
			Name:     b.Name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return nil, fmt.Errorf("create entry %s: %w", b.Name, err)
		}
		if _, err := f.Write(b.Data); err != nil {
			return nil, fmt.Errorf("write entry %s: %w", b.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}
