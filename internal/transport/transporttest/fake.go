package transporttest

import (
	"context"
	"errors"
	"sync"

	"lexadoc/internal/domain"
)

// ErrFake is the default failure returned by Fake when an op is set to fail.
var ErrFake = errors.New("fake transport failure")

// Fake is an in-process domain.Transport. Each op can be scripted with a
// function; unscripted ops succeed with zero values. Calls are counted.
type Fake struct {
	mu    sync.Mutex
	calls map[string]int

	MeFunc       func(ctx context.Context) (*domain.Profile, error)
	LoginFunc    func(ctx context.Context, req domain.LoginRequest) error
	RegisterFunc func(ctx context.Context, req domain.RegisterRequest) error
	LogoutFunc   func(ctx context.Context) error
	ListFunc     func(ctx context.Context) ([]domain.Document, error)
	UploadFunc   func(ctx context.Context, file *domain.File) (*domain.Document, error)
	DeleteFunc   func(ctx context.Context, id int64) error
	QueryFunc    func(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error)
}

var _ domain.Transport = (*Fake)(nil)

// Calls returns how many times op was invoked ("me", "login", "query", ...).
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// TotalCalls returns the number of calls across all ops.
func (f *Fake) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *Fake) count(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[op]++
}

func (f *Fake) Me(ctx context.Context) (*domain.Profile, error) {
	f.count("me")
	if f.MeFunc != nil {
		return f.MeFunc(ctx)
	}
	return &domain.Profile{}, nil
}

func (f *Fake) Login(ctx context.Context, req domain.LoginRequest) error {
	f.count("login")
	if f.LoginFunc != nil {
		return f.LoginFunc(ctx, req)
	}
	return nil
}

func (f *Fake) Register(ctx context.Context, req domain.RegisterRequest) error {
	f.count("register")
	if f.RegisterFunc != nil {
		return f.RegisterFunc(ctx, req)
	}
	return nil
}

func (f *Fake) Logout(ctx context.Context) error {
	f.count("logout")
	if f.LogoutFunc != nil {
		return f.LogoutFunc(ctx)
	}
	return nil
}

func (f *Fake) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	f.count("list")
	if f.ListFunc != nil {
		return f.ListFunc(ctx)
	}
	return []domain.Document{}, nil
}

func (f *Fake) Upload(ctx context.Context, file *domain.File) (*domain.Document, error) {
	f.count("upload")
	if f.UploadFunc != nil {
		return f.UploadFunc(ctx, file)
	}
	return &domain.Document{FileName: file.Name}, nil
}

func (f *Fake) DeleteDocument(ctx context.Context, id int64) error {
	f.count("delete")
	if f.DeleteFunc != nil {
		return f.DeleteFunc(ctx, id)
	}
	return nil
}

func (f *Fake) Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	f.count("query")
	if f.QueryFunc != nil {
		return f.QueryFunc(ctx, req)
	}
	return &domain.QueryResponse{DocumentID: req.DocumentID}, nil
}

// Gate holds a scripted call until Release, so tests can interleave commands
// around a suspended request.
type Gate struct {
	entered chan struct{}
	release chan struct{}
}

// NewGate returns an unreleased gate.
func NewGate() *Gate {
	return &Gate{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

// Wait is called from inside a scripted op; it signals entry and blocks until Release.
func (g *Gate) Wait(ctx context.Context) error {
	g.entered <- struct{}{}
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Entered blocks until the op reached Wait.
func (g *Gate) Entered() { <-g.entered }

// Release lets the suspended op continue.
func (g *Gate) Release() { close(g.release) }
