package domain

import "context"

// Document is a backend-tracked file record. Identity is ID.
type Document struct {
	ID        int64     `json:"id"`
	FileName  string    `json:"file_name"`
	FileType  string    `json:"file_type,omitempty"`
	CreatedAt Timestamp `json:"created_at,omitzero"`
}

// Profile is the authenticated user as reported by the session probe.
type Profile struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	DocumentID int64  `json:"document_id" validate:"required"`
	QueryText  string `json:"query_text" validate:"required"`
}

// QueryResponse is the answer returned by POST /query.
type QueryResponse struct {
	ResponseText string    `json:"response_text"`
	DocumentID   int64     `json:"document_id"`
	CreatedAt    Timestamp `json:"created_at,omitzero"`
}

// SessionAPI is the transport subset used by the session controller.
type SessionAPI interface {
	Me(ctx context.Context) (*Profile, error)
	Login(ctx context.Context, req LoginRequest) error
	Register(ctx context.Context, req RegisterRequest) error
	Logout(ctx context.Context) error
}

// DocumentAPI is the transport subset used by the document inventory.
type DocumentAPI interface {
	ListDocuments(ctx context.Context) ([]Document, error)
	Upload(ctx context.Context, file *File) (*Document, error)
	DeleteDocument(ctx context.Context, id int64) error
}

// QueryAPI is the transport subset used by the query executor.
type QueryAPI interface {
	Query(ctx context.Context, req QueryRequest) (*QueryResponse, error)
}

// Transport is the full credentialed channel to the backend.
type Transport interface {
	SessionAPI
	DocumentAPI
	QueryAPI
}
