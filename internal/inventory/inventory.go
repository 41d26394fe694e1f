package inventory

import (
	"context"
	"errors"
	"sync"

	"lexadoc/internal/domain"
	"lexadoc/internal/errx"
	"lexadoc/internal/logger"
)

const module = "inventory"

// ErrNoFile is returned by Upload when no file was given.
var ErrNoFile = errors.New("no file selected")

// LoadState tags the outcome of the last Load.
type LoadState string

const (
	NotLoaded  LoadState = "not_loaded"
	Loaded     LoadState = "loaded"
	LoadFailed LoadState = "load_failed"
)

// LoadResult distinguishes "no documents" from "could not list documents".
type LoadResult struct {
	State     LoadState
	Documents []domain.Document
	Err       error
}

// OK reports whether the list was fetched.
func (r LoadResult) OK() bool { return r.State == Loaded }

// Snapshot is an immutable view of the inventory.
type Snapshot struct {
	Documents []domain.Document
	Selected  *domain.Document
	Pending   *domain.File
	Loading   bool
	Uploading bool
	Deleting  bool
	Message   string
	Load      LoadResult
}

// Inventory owns the known documents, in arrival order, and the current selection.
type Inventory struct {
	api domain.DocumentAPI
	log logger.Logger

	mu         sync.Mutex
	docs       []domain.Document
	selected   *domain.Document
	pending    *domain.File
	loads      int
	uploads    int
	deletes    int
	message    string
	load       LoadResult
	generation uint64
}

// New creates an empty inventory.
func New(api domain.DocumentAPI, log logger.Logger) *Inventory {
	if log == nil {
		log = logger.NewNop()
	}
	return &Inventory{api: api, log: log, load: LoadResult{State: NotLoaded}}
}

// Snapshot returns a copy of the current state.
func (inv *Inventory) Snapshot() Snapshot {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return Snapshot{
		Documents: append([]domain.Document{}, inv.docs...),
		Selected:  copyDoc(inv.selected),
		Pending:   copyFile(inv.pending),
		Loading:   inv.loads > 0,
		Uploading: inv.uploads > 0,
		Deleting:  inv.deletes > 0,
		Message:   inv.message,
		Load: LoadResult{
			State:     inv.load.State,
			Documents: append([]domain.Document(nil), inv.load.Documents...),
			Err:       inv.load.Err,
		},
	}
}

// Selected returns the current selection, or nil.
func (inv *Inventory) Selected() *domain.Document {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return copyDoc(inv.selected)
}

// Generation identifies the current inventory lifetime. Invalidate advances it.
func (inv *Inventory) Generation() uint64 {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.generation
}

// Load replaces the inventory with the backend's list. On failure the
// inventory is emptied and the result is tagged LoadFailed.
func (inv *Inventory) Load(ctx context.Context) LoadResult {
	return inv.LoadAt(ctx, inv.Generation())
}

// LoadAt is Load fenced to generation gen: if the inventory was invalidated
// since gen was read, nothing is fetched or applied.
func (inv *Inventory) LoadAt(ctx context.Context, gen uint64) LoadResult {
	inv.mu.Lock()
	if gen != inv.generation {
		inv.mu.Unlock()
		return LoadResult{State: LoadFailed, Err: errx.ErrStale}
	}
	inv.loads++
	inv.mu.Unlock()

	docs, err := inv.api.ListDocuments(ctx)

	inv.mu.Lock()
	defer inv.mu.Unlock()
	if gen != inv.generation {
		return LoadResult{State: LoadFailed, Err: errx.ErrStale}
	}
	inv.loads--
	if err != nil {
		inv.docs = nil
		inv.load = LoadResult{State: LoadFailed, Err: err}
		inv.log.Warn(module, "document list failed", map[string]interface{}{"error": err.Error()})
		return inv.load
	}
	inv.docs = append([]domain.Document{}, docs...)
	inv.load = LoadResult{State: Loaded, Documents: append([]domain.Document{}, docs...)}
	inv.log.Info(module, "documents loaded", map[string]interface{}{"count": len(docs)})
	return inv.load
}

// Stage sets the file the next Upload will send. nil clears it.
func (inv *Inventory) Stage(file *domain.File) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.pending = file
}

// Upload sends file and, on success, appends the created document and selects it.
// A nil file fails fast without a request.
func (inv *Inventory) Upload(ctx context.Context, file *domain.File) (*domain.Document, error) {
	if file == nil {
		return nil, errx.Validation(errx.NoFileMessage, ErrNoFile)
	}

	inv.mu.Lock()
	gen := inv.generation
	inv.uploads++
	inv.message = ""
	inv.mu.Unlock()

	doc, err := inv.api.Upload(ctx, file)

	inv.mu.Lock()
	defer inv.mu.Unlock()
	if gen != inv.generation {
		return nil, errx.New(errx.KindState, errx.UploadFailedMessage, errx.ErrStale)
	}
	inv.uploads--
	if err != nil {
		inv.message = errx.UploadFailedMessage
		inv.log.Warn(module, "upload failed", map[string]interface{}{"file": file.Name, "error": err.Error()})
		return nil, errx.Transport(errx.UploadFailedMessage, err)
	}
	inv.docs = append(inv.docs, *doc)
	inv.pending = nil
	inv.selected = copyDoc(doc)
	inv.log.Info(module, "document uploaded", map[string]interface{}{"id": doc.ID, "file": doc.FileName})
	return copyDoc(doc), nil
}

// Select sets the current selection. The document is not checked against the inventory.
func (inv *Inventory) Select(doc *domain.Document) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.selected = copyDoc(doc)
}

// Remove drops the entry with id from the local view only; the backend keeps it.
// The selection is cleared iff it was that entry.
func (inv *Inventory) Remove(id int64) bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.removeLocked(id)
}

// DeleteRemote deletes the document on the backend, then removes it locally.
func (inv *Inventory) DeleteRemote(ctx context.Context, id int64) error {
	inv.mu.Lock()
	gen := inv.generation
	inv.deletes++
	inv.message = ""
	inv.mu.Unlock()

	err := inv.api.DeleteDocument(ctx, id)

	inv.mu.Lock()
	defer inv.mu.Unlock()
	if gen != inv.generation {
		return errx.New(errx.KindState, errx.DeleteFailedMessage, errx.ErrStale)
	}
	inv.deletes--
	if err != nil {
		inv.message = errx.DeleteFailedMessage
		inv.log.Warn(module, "delete failed", map[string]interface{}{"id": id, "error": err.Error()})
		return errx.Transport(errx.DeleteFailedMessage, err)
	}
	inv.removeLocked(id)
	inv.log.Info(module, "document deleted", map[string]interface{}{"id": id})
	return nil
}

// Invalidate empties the inventory and fences off every request issued before it.
func (inv *Inventory) Invalidate() {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.generation++
	inv.docs = nil
	inv.selected = nil
	inv.pending = nil
	inv.loads, inv.uploads, inv.deletes = 0, 0, 0
	inv.message = ""
	inv.load = LoadResult{State: NotLoaded}
}

func (inv *Inventory) removeLocked(id int64) bool {
	removed := false
	kept := inv.docs[:0:0]
	for _, d := range inv.docs {
		if d.ID == id {
			removed = true
			continue
		}
		kept = append(kept, d)
	}
	inv.docs = kept
	if inv.selected != nil && inv.selected.ID == id {
		inv.selected = nil
	}
	return removed
}

func copyDoc(d *domain.Document) *domain.Document {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

func copyFile(f *domain.File) *domain.File {
	if f == nil {
		return nil
	}
	c := *f
	c.Data = append([]byte(nil), f.Data...)
	return &c
}
