package service

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/set-night/crazegpt/internal/domain"
)

var mimeTypes = map[string]string{
	"txt":  "text/plain",
	"json": "application/json",
	"csv":  "text/csv",
	"html": "text/html",
	"js":   "text/javascript",
	"css":  "text/css",
	"zip":  "application/zip",
}

var fileIntentPhrases = []string{"create file", "generate file", "make a file"}

// typeKeywords is checked in order; the first keyword found picks the type.
var typeKeywords = []struct {
	keyword  string
	fileType string
}{
	{"json", "json"},
	{"csv", "csv"},
	{"html", "html"},
	{"javascript", "js"},
	{"js", "js"},
	{"css", "css"},
	{"zip", "zip"},
}

type FileService struct {
	blobs *BlobStore
}

func NewFileService(blobs *BlobStore) *FileService {
	return &FileService{blobs: blobs}
}

// MIMEType reports the MIME type for a file type tag.
func MIMEType(fileType string) (string, bool) {
	m, ok := mimeTypes[fileType]
	return m, ok
}

// Generate stores content as a downloadable file of the given type.
func (s *FileService) Generate(fileType, content, filename string) (domain.GeneratedFile, error) {
	mimeType, ok := MIMEType(fileType)
	if !ok {
		return domain.GeneratedFile{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedFileType, fileType)
	}
	if filename == "" {
		filename = "crazegpt-file." + fileType
	}

	data := []byte(content)
	if fileType == "zip" {
		archive, err := zipSingle(strings.TrimSuffix(filename, ".zip")+".txt", data)
		if err != nil {
			return domain.GeneratedFile{}, err
		}
		data = archive
	}

	url := s.blobs.Put(data, filename, mimeType)
	slog.Debug("file generated", "url", url, "filename", filename, "size", len(data))

	return domain.GeneratedFile{URL: url, Filename: filename, MIMEType: mimeType}, nil
}

// Lookup describes the file behind url without releasing it.
func (s *FileService) Lookup(url string) (domain.GeneratedFile, error) {
	b, err := s.blobs.Get(url)
	if err != nil {
		return domain.GeneratedFile{}, err
	}
	return domain.GeneratedFile{URL: url, Filename: b.filename, MIMEType: b.mimeType}, nil
}

// Download writes the file behind url to w and releases it, whether or not
// the write succeeded.
func (s *FileService) Download(w io.Writer, url string) (domain.GeneratedFile, error) {
	b, err := s.blobs.Get(url)
	if err != nil {
		return domain.GeneratedFile{}, err
	}
	defer s.blobs.Revoke(url)

	file := domain.GeneratedFile{URL: url, Filename: b.filename, MIMEType: b.mimeType}
	if _, err := w.Write(b.data); err != nil {
		return file, fmt.Errorf("write file: %w", err)
	}
	return file, nil
}

// Intent reports whether text asks for a file to be created.
func Intent(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range fileIntentPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// InferType picks a file type tag from the wording of a request.
func InferType(text string) string {
	lower := strings.ToLower(text)
	for _, k := range typeKeywords {
		if strings.Contains(lower, k.keyword) {
			return k.fileType
		}
	}
	return "txt"
}

func zipSingle(name string, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fw, err := zw.Create(name)
	if err != nil {
		return nil, fmt.Errorf("create zip entry: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return nil, fmt.Errorf("write zip entry: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}
