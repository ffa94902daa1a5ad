package httpclient

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// BodySource supplies a request payload. Passing one as RequestConfig.Data sends its
// bytes unchanged.
type BodySource interface {
	NewReader() (io.ReadCloser, error)
	ContentLength() (int64, bool)
}

// NewBodySource picks the inline body or the body file. At most one may be set; with
// neither the source is empty.
func NewBodySource(inline, path string) (BodySource, error) {
	path = strings.TrimSpace(path)
	if inline != "" && path != "" {
		return nil, errors.New("body and body file cannot both be provided")
	}

	if inline != "" {
		return &inlineBodySource{data: []byte(inline)}, nil
	}

	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("body file: %w", err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("body file %q is a directory", path)
		}
		return &fileBodySource{path: path, size: info.Size()}, nil
	}

	return emptyBodySource{}, nil
}

// readBody drains src. Empty sources yield nil so no body is sent.
func readBody(src BodySource) ([]byte, error) {
	if n, ok := src.ContentLength(); ok && n == 0 {
		return nil, nil
	}
	rc, err := src.NewReader()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data, nil
}

type inlineBodySource struct {
	data []byte
}

func (s *inlineBodySource) NewReader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

func (s *inlineBodySource) ContentLength() (int64, bool) {
	return int64(len(s.data)), true
}

type fileBodySource struct {
	path string
	size int64
}

func (s *fileBodySource) NewReader() (io.ReadCloser, error) {
	return os.Open(s.path)
}

// ContentLength is the size at Stat time and may be stale.
func (s *fileBodySource) ContentLength() (int64, bool) {
	return s.size, false
}

type emptyBodySource struct{}

func (emptyBodySource) NewReader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(nil)), nil
}

func (emptyBodySource) ContentLength() (int64, bool) {
	return 0, true
}
