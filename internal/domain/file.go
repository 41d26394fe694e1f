package domain

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// File is a local file staged for upload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// NewFile builds a File from in-memory content and sniffs its content type.
func NewFile(name string, data []byte) *File {
	return &File{
		Name:        filepath.Base(name),
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}
}

// OpenFile reads path into a staged File.
func OpenFile(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, errors.New("cannot upload a directory")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewFile(path, data), nil
}

// Reader returns a fresh reader over the file content.
func (f *File) Reader() io.Reader {
	return bytes.NewReader(f.Data)
}

// Size is the content length in bytes.
func (f *File) Size() int { return len(f.Data) }
