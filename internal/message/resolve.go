package message

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/bscott/mailsync/internal/model"
)

const maxAttachmentFetch = 25 << 20

// File is a resolved outbound attachment.
type File struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Resolver loads outbound attachment bytes from a local path, inline base64
// content or a URL. Relative URLs are looked up under the upload directory.
type Resolver struct {
	uploadDir string
	client    *http.Client
}

func NewResolver(uploadDir string, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Resolver{
		uploadDir: uploadDir,
		client:    &http.Client{Timeout: timeout},
	}
}

func (r *Resolver) Resolve(a model.OutboundAttachment) (File, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case a.Path != "":
		data, err = os.ReadFile(a.Path)
	case a.Content != "":
		data, err = base64.StdEncoding.DecodeString(a.Content)
	case a.URL != "":
		data, err = r.fetch(a.URL)
	default:
		err = fmt.Errorf("no content source")
	}
	if err != nil {
		return File{}, fmt.Errorf("attachment %q: %w", a.Filename, err)
	}

	name := a.Filename
	if name == "" {
		name = filepath.Base(firstNonEmpty(a.Path, a.URL, "attachment"))
	}
	contentType := a.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(name))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return File{Filename: name, ContentType: contentType, Data: data}, nil
}

func (r *Resolver) fetch(u string) ([]byte, error) {
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		if r.uploadDir == "" {
			return nil, fmt.Errorf("relative url %q without upload directory", u)
		}
		clean := path.Clean("/" + u)
		return os.ReadFile(filepath.Join(r.uploadDir, filepath.FromSlash(strings.TrimPrefix(clean, "/uploads"))))
	}

	resp, err := r.client.Get(u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", u, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxAttachmentFetch))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
