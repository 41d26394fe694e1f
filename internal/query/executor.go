package query

import (
	"context"
	"strings"
	"sync"
	"time"

	"lexadoc/internal/domain"
	"lexadoc/internal/errx"
	"lexadoc/internal/logger"
)

const module = "query"

// Selection supplies the document a query is issued against.
type Selection interface {
	Selected() *domain.Document
}

// State is the single, reused query state.
type State struct {
	Text       string
	Answer     string
	Error      string
	Loading    bool
	DocumentID int64
	AnsweredAt time.Time
}

// Executor validates, dispatches and tracks one query at a time.
// Every Ask, Clear and Invalidate advances a sequence number; a response
// is applied only if its sequence is still the latest.
type Executor struct {
	api domain.QueryAPI
	sel Selection
	log logger.Logger

	mu    sync.Mutex
	state State
	seq   uint64
}

// New creates an executor reading the selection from sel.
func New(api domain.QueryAPI, sel Selection, log logger.Logger) *Executor {
	if log == nil {
		log = logger.NewNop()
	}
	return &Executor{api: api, sel: sel, log: log}
}

// Snapshot returns a copy of the query state.
func (e *Executor) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// SetText stores the pending question without sending it.
func (e *Executor) SetText(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Text = text
}

// Ask sends text against the document selected at call time.
// Loading is false on return unless a newer Ask is still in flight.
func (e *Executor) Ask(ctx context.Context, text string) error {
	e.mu.Lock()
	e.seq++
	seq := e.seq
	e.state.Text = text
	e.mu.Unlock()

	// Read after stamping so an Invalidate in between is detected below.
	doc := e.sel.Selected()

	e.mu.Lock()
	if seq != e.seq {
		e.mu.Unlock()
		return errx.New(errx.KindState, errx.QueryFailedMessage, errx.ErrStale)
	}
	if doc == nil {
		e.state.Error = errx.NoDocumentMessage
		e.state.Loading = false
		e.mu.Unlock()
		return errx.Validation(errx.NoDocumentMessage, nil)
	}
	question := strings.TrimSpace(text)
	if question == "" {
		e.state.Error = errx.EmptyQueryMessage
		e.state.Loading = false
		e.mu.Unlock()
		return errx.Validation(errx.EmptyQueryMessage, nil)
	}
	req := domain.QueryRequest{DocumentID: doc.ID, QueryText: question}
	if err := domain.Validate(req); err != nil {
		e.state.Error = errx.NoDocumentMessage
		e.state.Loading = false
		e.mu.Unlock()
		return errx.Validation(errx.NoDocumentMessage, err)
	}
	e.state.Loading = true
	e.state.Error = ""
	e.mu.Unlock()

	resp, err := e.api.Query(ctx, req)

	e.mu.Lock()
	defer e.mu.Unlock()
	if seq != e.seq {
		e.log.Debug(module, "discarded superseded response", map[string]interface{}{"seq": seq, "current": e.seq})
		return errx.New(errx.KindState, errx.QueryFailedMessage, errx.ErrStale)
	}
	e.state.Loading = false
	if err != nil {
		e.state.Error = errx.QueryFailedMessage
		e.state.Answer = ""
		e.log.Warn(module, "query failed", map[string]interface{}{"document_id": doc.ID, "error": err.Error()})
		return errx.Transport(errx.QueryFailedMessage, err)
	}
	e.state.Answer = resp.ResponseText
	e.state.DocumentID = doc.ID
	e.state.AnsweredAt = resp.CreatedAt.Time
	e.log.Info(module, "query answered", map[string]interface{}{"document_id": doc.ID, "seq": seq})
	return nil
}

// Clear resets text, answer and error. A response still in flight is discarded when it lands.
func (e *Executor) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq++
	e.state = State{}
}

// Invalidate is Clear for logout.
func (e *Executor) Invalidate() {
	e.Clear()
}
