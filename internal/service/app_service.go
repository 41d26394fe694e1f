package service

import (
	"context"

	"lexadoc/internal/domain"
	"lexadoc/internal/errx"
	"lexadoc/internal/inventory"
	"lexadoc/internal/logger"
	"lexadoc/internal/query"
	"lexadoc/internal/session"
)

const module = "service"

// Options configures the application service.
type Options struct {
	ServerLogout bool
	Logger       logger.Logger
}

// Snapshot is a consistent-enough view of all three controllers for rendering.
type Snapshot struct {
	Session   session.Snapshot
	Inventory inventory.Snapshot
	Query     query.State
}

// AppService gates document and query commands on the session and applies
// the logout cross-effects.
type AppService struct {
	session   *session.Controller
	inventory *inventory.Inventory
	query     *query.Executor
	log       logger.Logger
}

// NewAppService assembles the controllers over one transport.
func NewAppService(api domain.Transport, opts Options) *AppService {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	sess := session.New(api, session.Options{ServerLogout: opts.ServerLogout, Logger: log})
	inv := inventory.New(api, log)
	exec := query.New(api, inv, log)

	sess.OnLogout(inv.Invalidate)
	sess.OnLogout(exec.Invalidate)

	return &AppService{session: sess, inventory: inv, query: exec, log: log}
}

// Snapshot returns the state of every controller.
func (s *AppService) Snapshot() Snapshot {
	return Snapshot{
		Session:   s.session.Snapshot(),
		Inventory: s.inventory.Snapshot(),
		Query:     s.query.Snapshot(),
	}
}

// Start runs the one-time session probe and, if authenticated, the first load.
func (s *AppService) Start(ctx context.Context) (session.Status, inventory.LoadResult) {
	status := s.session.CheckSession(ctx)
	if status != session.Authenticated {
		return status, inventory.LoadResult{State: inventory.NotLoaded}
	}
	return status, s.inventory.Load(ctx)
}

// Login authenticates and then loads the documents for the new session.
func (s *AppService) Login(ctx context.Context, username, password string) (inventory.LoadResult, error) {
	// A logout landing after this point invalidates the inventory and fences the load.
	gen := s.inventory.Generation()
	if err := s.session.Login(ctx, username, password); err != nil {
		return inventory.LoadResult{State: inventory.NotLoaded}, err
	}
	res := s.inventory.LoadAt(ctx, gen)
	if !res.OK() {
		s.log.Warn(module, "initial document load failed", map[string]interface{}{"error": errString(res.Err)})
	}
	return res, nil
}

func (s *AppService) Register(ctx context.Context, username, email, password string) (session.RegisterResult, error) {
	return s.session.Register(ctx, username, email, password)
}

// Logout clears the selection, documents and query state, then invalidates the server session if enabled.
func (s *AppService) Logout(ctx context.Context) error {
	return s.session.Logout(ctx)
}

// Reload fetches the document list again.
func (s *AppService) Reload(ctx context.Context) (inventory.LoadResult, error) {
	if err := s.requireAuth(errx.LoadFailedMessage); err != nil {
		return inventory.LoadResult{State: inventory.NotLoaded}, err
	}
	return s.inventory.Load(ctx), nil
}

// Stage sets the file the next upload sends.
func (s *AppService) Stage(file *domain.File) error {
	if err := s.requireAuth(errx.UploadFailedMessage); err != nil {
		return err
	}
	s.inventory.Stage(file)
	return nil
}

func (s *AppService) Upload(ctx context.Context, file *domain.File) (*domain.Document, error) {
	if err := s.requireAuth(errx.UploadFailedMessage); err != nil {
		return nil, err
	}
	return s.inventory.Upload(ctx, file)
}

// UploadStaged uploads the pending file, failing fast when none is staged.
func (s *AppService) UploadStaged(ctx context.Context) (*domain.Document, error) {
	return s.Upload(ctx, s.inventory.Snapshot().Pending)
}

func (s *AppService) Select(doc *domain.Document) error {
	if err := s.requireAuth(errx.NoDocumentMessage); err != nil {
		return err
	}
	s.inventory.Select(doc)
	return nil
}

// Remove hides a document from the local view; nothing is deleted on the backend.
func (s *AppService) Remove(id int64) error {
	if err := s.requireAuth(errx.DeleteFailedMessage); err != nil {
		return err
	}
	s.inventory.Remove(id)
	return nil
}

// Delete removes the document on the backend and then from the local view.
func (s *AppService) Delete(ctx context.Context, id int64) error {
	if err := s.requireAuth(errx.DeleteFailedMessage); err != nil {
		return err
	}
	return s.inventory.DeleteRemote(ctx, id)
}

func (s *AppService) SetQueryText(text string) {
	s.query.SetText(text)
}

func (s *AppService) Ask(ctx context.Context, text string) error {
	if err := s.requireAuth(errx.QueryFailedMessage); err != nil {
		return err
	}
	return s.query.Ask(ctx, text)
}

func (s *AppService) ClearQuery() {
	s.query.Clear()
}

func (s *AppService) requireAuth(message string) error {
	if s.session.Status() != session.Authenticated {
		return errx.New(errx.KindState, message, errx.ErrNotAuthenticated)
	}
	return nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
