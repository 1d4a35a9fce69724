package uploader

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// Source is a file submitted to the queue.
type Source interface {
	Name() string
	Mime() string
	Size() int64
	ModTime() time.Time
	Open() (io.ReadCloser, error)
}

// LocalFile is a file on disk whose mime type is sniffed from its content.
type LocalFile struct {
	path string
	mime string
	size int64
	mod  time.Time
}

// NewLocalFile stats path and detects its mime type.
func NewLocalFile(path string) (*LocalFile, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("detect mime type of %s: %w", path, err)
	}
	mime, _, _ := strings.Cut(mt.String(), ";")
	return &LocalFile{
		path: path,
		mime: mime,
		size: fi.Size(),
		mod:  fi.ModTime(),
	}, nil
}

func (f *LocalFile) Name() string       { return filepath.Base(f.path) }
func (f *LocalFile) Mime() string       { return f.mime }
func (f *LocalFile) Size() int64        { return f.size }
func (f *LocalFile) ModTime() time.Time { return f.mod }

func (f *LocalFile) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

// MemFile is an in-memory Source.
type MemFile struct {
	FileName string
	MimeType string
	Data     []byte
	Modified time.Time
}

func (f MemFile) Name() string       { return f.FileName }
func (f MemFile) Mime() string       { return f.MimeType }
func (f MemFile) Size() int64        { return int64(len(f.Data)) }
func (f MemFile) ModTime() time.Time { return f.Modified }

func (f MemFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.Data)), nil
}
