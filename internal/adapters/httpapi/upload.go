package httpapi

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/bnema/smartani/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	multipartMemory   = 8 << 20
	inlineLimitBytes  = 20 << 20
	zipListingLimit   = 200
	uploadDirMode     = 0o750
	uploadURLPrefix   = "/uploads/"
	defaultUploadName = "upload"
)

var (
	errUploadTooLarge     = errors.New("uploaded file exceeds the size limit")
	errFileTypeNotAllowed = errors.New("file type not allowed")
)

var allowedExtensions = map[string]struct{}{
	".pdf": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {}, ".ppt": {}, ".pptx": {},
	".txt": {}, ".csv": {}, ".rtf": {}, ".odt": {}, ".zip": {},
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type savedUpload struct {
	URL         string
	Path        string
	ZipContents []string
	Attachment  *domain.Attachment
}

func uploadMarker(url string) string {
	return "[FILE_UPLOADED:" + url + "]"
}

func uploadMIMEType(file *multipart.FileHeader) string {
	if contentType := file.Header.Get("Content-Type"); contentType != "" {
		if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && mediaType != "application/octet-stream" {
			return mediaType
		}
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(file.Filename))); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
			return mediaType
		}
	}
	return "application/octet-stream"
}

func allowedUpload(filename string, mimeType string) bool {
	if strings.HasPrefix(mimeType, "image/") || strings.HasPrefix(mimeType, "video/") {
		return true
	}
	_, ok := allowedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// inlineSupported lists the media the completion service accepts as inline
// parts. Other uploads are referenced by URL only.
func inlineSupported(mimeType string) bool {
	switch {
	case strings.HasPrefix(mimeType, "image/"),
		strings.HasPrefix(mimeType, "video/"),
		strings.HasPrefix(mimeType, "audio/"),
		strings.HasPrefix(mimeType, "text/"),
		mimeType == "application/pdf":
		return true
	default:
		return false
	}
}

func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.Trim(unsafeFileChars.ReplaceAllString(base, "_"), "._")
	if base == "" {
		return defaultUploadName
	}
	return base
}

func (h *Handlers) saveUpload(c *gin.Context, file *multipart.FileHeader) (*savedUpload, error) {
	mimeType := uploadMIMEType(file)
	if !allowedUpload(file.Filename, mimeType) {
		return nil, errFileTypeNotAllowed
	}
	if h.config.UploadDir == "" {
		return nil, errors.New("uploads are not configured")
	}
	if err := os.MkdirAll(h.config.UploadDir, uploadDirMode); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}

	name := strconv.FormatInt(h.now().Unix(), 10) + "_" + sanitizeFilename(file.Filename)
	path := filepath.Join(h.config.UploadDir, name)
	if err := c.SaveUploadedFile(file, path); err != nil {
		return nil, fmt.Errorf("save uploaded file: %w", err)
	}

	upload := &savedUpload{URL: uploadURLPrefix + name, Path: path}
	if strings.EqualFold(filepath.Ext(name), ".zip") {
		contents, err := listZip(path, zipListingLimit)
		if err != nil {
			h.logger.Warn("list zip contents", zap.String("file", name), zap.Error(err))
		} else {
			upload.ZipContents = contents
		}
	}

	if file.Size <= inlineLimitBytes && inlineSupported(mimeType) {
		data, err := readUpload(file)
		if err != nil {
			return nil, err
		}
		upload.Attachment = &domain.Attachment{Name: name, MIMEType: mimeType, Data: data}
	}

	return upload, nil
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open uploaded file: %w", err)
	}
	defer func() { _ = src.Close() }()

	data, err := io.ReadAll(io.LimitReader(src, inlineLimitBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read uploaded file: %w", err)
	}
	return data, nil
}

func listZip(path string, limit int) ([]string, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer func() { _ = reader.Close() }()

	names := make([]string, 0, min(limit, len(reader.File)))
	for _, entry := range reader.File {
		if len(names) == limit {
			break
		}
		names = append(names, entry.Name)
	}
	return names, nil
}
