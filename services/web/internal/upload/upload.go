package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"dailyreport/internal/util"
	"dailyreport/pkg/domain"
	"dailyreport/pkg/editor"
	"dailyreport/pkg/storage"
	"dailyreport/services/web/internal/reportclient"
)

const (
	msgUploaded      = "Image uploaded."
	msgUploadFailed  = "Image upload failed."
	msgUnsupported   = "This file type is not supported."
	msgTooLarge      = "The image is too large."
	msgNoFile        = "Choose an image to upload."
	objectKeyPrefix  = "reports/images/"
	defaultMaxBytes  = 10 << 20
	defaultExtension = ".png"
)

var defaultExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}

// Uploader stores an image and returns where it can be loaded from.
type Uploader interface {
	Upload(ctx context.Context, filename string, r io.Reader, size int64) (domain.UploadResult, error)
}

// ImageAPI is the backend upload endpoint.
type ImageAPI interface {
	Upload(ctx context.Context, filename string, r io.Reader) (domain.UploadResult, error)
}

type backendUploader struct {
	api ImageAPI
}

// Backend uploads through the backend's /api/upload endpoint.
func Backend(api ImageAPI) Uploader {
	return backendUploader{api: api}
}

func (b backendUploader) Upload(ctx context.Context, filename string, r io.Reader, _ int64) (domain.UploadResult, error) {
	return b.api.Upload(ctx, filename, r)
}

// ObjectUploader writes images straight to object storage.
type ObjectUploader struct {
	store storage.ObjectStore
}

func NewObjectUploader(store storage.ObjectStore) *ObjectUploader {
	return &ObjectUploader{store: store}
}

func (o *ObjectUploader) Upload(ctx context.Context, filename string, r io.Reader, size int64) (domain.UploadResult, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = defaultExtension
	}
	key := objectKeyPrefix + util.NewID() + ext
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := o.store.Put(ctx, key, r, size, contentType); err != nil {
		return domain.UploadResult{}, fmt.Errorf("put object: %w", err)
	}
	url, err := o.store.URL(ctx, key)
	if err != nil {
		return domain.UploadResult{}, fmt.Errorf("object url: %w", err)
	}
	return domain.UploadResult{URL: url, Filename: filepath.Base(filename)}, nil
}

// Notifier surfaces toasts to the user.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Inserter receives the uploaded image. *editor.Editor satisfies it.
type Inserter interface {
	InsertImage(src string) (editor.NodeID, error)
}

// File is one chosen file.
type File struct {
	Name string
	Size int64
	Body io.Reader
}

// Selection is the state of a file input. Reset clears it so the same file
// can be chosen again.
type Selection struct {
	File   *File
	closer io.Closer
}

// NewSelection wraps a chosen file. closer, when set, is closed on Reset.
func NewSelection(file *File, closer io.Closer) *Selection {
	return &Selection{File: file, closer: closer}
}

// Reset releases the chosen file.
func (s *Selection) Reset() {
	if s == nil {
		return
	}
	if s.closer != nil {
		_ = s.closer.Close()
		s.closer = nil
	}
	s.File = nil
}

// Policy limits what may be uploaded.
type Policy struct {
	MaxBytes   int64
	Extensions []string
}

// Coordinator uploads a chosen image and inserts it at the cursor. There is
// no retry; on failure the document is left untouched.
type Coordinator struct {
	uploader   Uploader
	notifier   Notifier
	maxBytes   int64
	extensions map[string]struct{}
}

func NewCoordinator(uploader Uploader, notifier Notifier, policy Policy) *Coordinator {
	maxBytes := policy.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &Coordinator{
		uploader:   uploader,
		notifier:   notifier,
		maxBytes:   maxBytes,
		extensions: normalizeExtensions(policy.Extensions),
	}
}

// Upload handles one selection. The selection is reset whatever the outcome.
func (c *Coordinator) Upload(ctx context.Context, sel *Selection, target Inserter) (editor.NodeID, error) {
	defer sel.Reset()
	if sel == nil || sel.File == nil {
		return 0, c.fail(domain.NewFailure(domain.KindValidation, msgNoFile, nil))
	}
	file := sel.File
	if !c.allowed(file.Name) {
		return 0, c.fail(domain.NewFailure(domain.KindValidation, msgUnsupported, nil))
	}
	if file.Size > c.maxBytes {
		return 0, c.fail(domain.NewFailure(domain.KindValidation, msgTooLarge, nil))
	}

	res, err := c.uploader.Upload(ctx, file.Name, io.LimitReader(file.Body, c.maxBytes), file.Size)
	if err != nil {
		util.LoggerFromContext(ctx).Warn("image upload failed", "filename", file.Name, "err", err)
		return 0, c.fail(uploadFailure(err))
	}
	id, err := target.InsertImage(res.URL)
	if err != nil {
		return 0, c.fail(domain.NewFailure(domain.KindUnexpected, msgUploadFailed, err))
	}
	c.notifier.Success(msgUploaded)
	return id, nil
}

func (c *Coordinator) fail(f *domain.Failure) error {
	c.notifier.Error(f.Message)
	return f
}

func (c *Coordinator) allowed(filename string) bool {
	_, ok := c.extensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// uploadFailure shows the backend's message when it gave one.
func uploadFailure(err error) *domain.Failure {
	var apiErr *reportclient.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return domain.NewFailure(domain.KindRejected, apiErr.Message, err)
	}
	return domain.NewFailure(domain.KindTransport, msgUploadFailed, err)
}

func normalizeExtensions(exts []string) map[string]struct{} {
	if len(exts) == 0 {
		exts = defaultExtensions
	}
	out := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out[ext] = struct{}{}
	}
	return out
}
