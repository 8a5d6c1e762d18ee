package storage

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// DiskPrefix is the URL path under which Disk objects are served.
const DiskPrefix = "/uploads/"

// Disk writes uploads below Dir. Returned URLs are BaseURL + DiskPrefix + name,
// and Handler serves them back.
type Disk struct {
	Dir     string
	BaseURL string
}

func NewDisk(dir, baseURL string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "creating upload dir %s", dir)
	}
	return &Disk{Dir: dir, BaseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (d *Disk) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := path.Clean("/" + name)[1:]
	if clean == "" || strings.HasPrefix(clean, "..") {
		return "", errors.Errorf("invalid object name %q", name)
	}
	full := filepath.Join(d.Dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", errors.Wrap(err, "creating object dir")
	}
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", errors.Wrap(err, "writing object")
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return "", errors.Wrap(err, "publishing object")
	}
	return d.BaseURL + DiskPrefix + clean, nil
}

// Handler serves stored objects; mount it at DiskPrefix.
func (d *Disk) Handler() http.Handler {
	return http.StripPrefix(DiskPrefix, http.FileServer(http.Dir(d.Dir)))
}
