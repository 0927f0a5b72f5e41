package httpclient

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// MultipartBody is a multipart/form-data request body. It is encoded anew
// for every attempt, so a retried upload sends the whole file again.
type MultipartBody struct {
	Fields map[string]string
	Files  []FileField
}

// FileField is one file part. Path is opened on each attempt and streamed;
// Data is sent as is when Path is empty.
type FileField struct {
	FieldName string
	// FileName defaults to the base name of Path.
	FileName string
	// ContentType defaults to application/octet-stream.
	ContentType string
	Path        string
	Data        []byte
}

// encode streams the body through a pipe so audio files are never held in
// memory. An unreadable file fails the request with the open error.
func (m *MultipartBody) encode() (io.Reader, string, error) {
	for _, f := range m.Files {
		if f.Path == "" {
			continue
		}
		if _, err := os.Stat(f.Path); err != nil {
			return nil, "", fmt.Errorf("multipart file %q: %w", f.FieldName, err)
		}
	}
	pr, pw := io.Pipe()
	w := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(m.write(w))
	}()
	return pr, w.FormDataContentType(), nil
}

func (m *MultipartBody) write(w *multipart.Writer) error {
	names := make([]string, 0, len(m.Fields))
	for name := range m.Fields {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := w.WriteField(name, m.Fields[name]); err != nil {
			return err
		}
	}
	for _, f := range m.Files {
		if err := f.write(w); err != nil {
			return err
		}
	}
	return w.Close()
}

func (f FileField) write(w *multipart.Writer) error {
	name := f.FileName
	if name == "" && f.Path != "" {
		name = filepath.Base(f.Path)
	}
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, quoteEscaper.Replace(f.FieldName), quoteEscaper.Replace(name)))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return err
	}

	if f.Path == "" {
		_, err = part.Write(f.Data)
		return err
	}
	src, err := os.Open(f.Path)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()
	_, err = io.Copy(part, src)
	return err
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)
