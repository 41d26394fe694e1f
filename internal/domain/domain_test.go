package domain

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     any
		wantErr bool
	}{
		{"login ok", LoginRequest{Username: "alice", Password: "secret"}, false},
		{"login blank username", LoginRequest{Username: "   ", Password: "secret"}, true},
		{"login missing password", LoginRequest{Username: "alice"}, true},
		{"register ok", RegisterRequest{Username: "alice", Email: "alice@gmail.com", Password: "pw"}, false},
		{"register bad email", RegisterRequest{Username: "alice", Email: "not-an-email", Password: "pw"}, true},
		{"query ok", QueryRequest{DocumentID: 1, QueryText: "What is this?"}, false},
		{"query blank text", QueryRequest{DocumentID: 1, QueryText: " \t\n"}, true},
		{"query no document", QueryRequest{QueryText: "hi"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.req)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDocumentDecode(t *testing.T) {
	payload := `[{"id":1,"file_name":"a.pdf","file_type":"application/pdf","created_at":"2024-05-01T10:11:12.345678"},
		{"id":2,"file_name":"b.txt","file_type":"text/plain","created_at":"2024-05-01T10:11:12Z","extra":"ignored"}]`

	var docs []Document
	require.NoError(t, json.Unmarshal([]byte(payload), &docs))
	require.Len(t, docs, 2)

	assert.Equal(t, int64(1), docs[0].ID)
	assert.Equal(t, "a.pdf", docs[0].FileName)
	assert.Equal(t, 2024, docs[0].CreatedAt.Year())
	assert.Equal(t, 345678000, docs[0].CreatedAt.Nanosecond())
	assert.Equal(t, time.UTC, docs[1].CreatedAt.Location())
}

func TestTimestampNullAndInvalid(t *testing.T) {
	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`null`), &ts))
	assert.True(t, ts.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))

	out, err := json.Marshal(Timestamp{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

func TestOpenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain text body"), 0o644))

	f, err := OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", f.Name)
	assert.Equal(t, 15, f.Size())
	assert.Contains(t, f.ContentType, "text/plain")

	_, err = OpenFile(dir)
	assert.Error(t, err)

	_, err = OpenFile(filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)
}

func TestNewFileDetectsPDF(t *testing.T) {
	f := NewFile("/tmp/a.pdf", []byte("%PDF-1.4\n%âãÏÓ\n"))
	assert.Equal(t, "a.pdf", f.Name)
	assert.Equal(t, "application/pdf", f.ContentType)
}
