// Package registry owns the mapping from opaque connection identifiers
// to open backend handles. Mutation of the mapping (open/close) is a
// critical section guarded by a mutex; query execution against an
// already-open handle needs no additional locking since handles are
// read-only for the query layer.
package registry

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/go9sky/tuckview/tabledata"
	"github.com/go9sky/tuckview/tabledata/queryengine"
)

const (
	logMsgOpenedConnection  = "opened backend connection"
	logMsgClosedConnection  = "closed backend connection"
	logMsgBackendCloseError = "backend close failed"
	logMsgOpenFailed        = "opening backend failed"
	logAttrConnectionID     = "connection_id"
	logAttrSource           = "source"
	logAttrBackend          = "backend"
	logAttrError            = "error"
)

// Handle is one open backend session. It is immutable after
// registration; only the registry may create or destroy it.
type Handle struct {
	ID       string
	Source   string
	Backend  tabledata.Backend
	Engine   *queryengine.Engine
	OpenedAt time.Time
}

// Capabilities returns the capability record probed when the handle was
// opened.
func (h *Handle) Capabilities() tabledata.CapabilityRecord {
	return h.Engine.Capabilities()
}

// Opener recognizes and opens one kind of backend source.
type Opener struct {
	// Name identifies the opener in logs.
	Name string
	// Recognize reports whether the source belongs to this opener.
	// It must not leave state behind.
	Recognize func(source string) bool
	// Open validates the source and produces a live backend.
	Open func(ctx context.Context, source string) (tabledata.Backend, error)
	// FileBased marks openers whose sources are filesystem paths; the
	// registry stats those up front to distinguish "does not exist"
	// from "not recognized".
	FileBased bool
}

// Registry owns all open connection handles. It is safe for concurrent
// use; Get is a read-lock lookup while Open and Close serialize on the
// write lock.
type Registry struct {
	mu         sync.RWMutex
	handles    map[string]*Handle
	openers    []Opener
	logger     tabledata.Logger
	engineOpts []queryengine.Option
	statSource func(source string) error
}

// Option defines a functional option for configuring a Registry.
type Option func(*Registry)

// WithLogger sets the logger for the Registry.
func WithLogger(logger tabledata.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithOpener appends a backend opener; openers are tried in
// registration order.
func WithOpener(opener Opener) Option {
	return func(r *Registry) {
		r.openers = append(r.openers, opener)
	}
}

// WithEngineOptions sets the options applied to every query engine
// built for a newly opened handle.
func WithEngineOptions(options ...queryengine.Option) Option {
	return func(r *Registry) {
		r.engineOpts = options
	}
}

// New creates an empty Registry.
func New(options ...Option) *Registry {
	registry := &Registry{
		handles:    make(map[string]*Handle),
		statSource: statPath,
	}

	for _, option := range options {
		option(registry)
	}

	return registry
}

// Open validates and opens a source, probes its capabilities, and
// registers a fresh handle under a new identifier. A source that does
// not exist fails with tabledata.ErrSourceNotFound; one that exists
// but no opener recognizes fails with tabledata.ErrSourceNotRecognized.
// Neither is retried.
func (r *Registry) Open(ctx context.Context, source string) (*Handle, error) {
	if source == "" {
		return nil, tabledata.ErrEmptySource
	}

	opener, err := r.selectOpener(source)
	if err != nil {
		return nil, err
	}

	backend, openErr := opener.Open(ctx, source)
	if openErr != nil {
		r.logError(logMsgOpenFailed, logAttrSource, source, logAttrError, openErr.Error())
		return nil, openErr
	}

	engine, engineErr := queryengine.New(backend, r.engineOpts...)
	if engineErr != nil {
		_ = backend.Close()
		return nil, engineErr
	}

	handle := &Handle{
		ID:       uuid.NewString(),
		Source:   source,
		Backend:  backend,
		Engine:   engine,
		OpenedAt: time.Now(),
	}

	r.mu.Lock()
	r.handles[handle.ID] = handle
	r.mu.Unlock()

	r.logInfo(
		logMsgOpenedConnection,
		logAttrConnectionID, handle.ID,
		logAttrSource, source,
		logAttrBackend, handle.Capabilities().BackendName,
	)

	return handle, nil
}

// Get resolves a connection identifier to its handle.
func (r *Registry) Get(id string) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handle, found := r.handles[id]

	return handle, found
}

// Close tears down the handle registered under id. Closing an unknown
// or already-closed identifier is a no-op, not an error.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	handle, found := r.handles[id]
	delete(r.handles, id)
	r.mu.Unlock()

	if !found {
		return
	}

	if closeErr := handle.Backend.Close(); closeErr != nil {
		r.logWarn(logMsgBackendCloseError, logAttrConnectionID, id, logAttrError, closeErr.Error())
	}

	r.logInfo(logMsgClosedConnection, logAttrConnectionID, id, logAttrSource, handle.Source)
}

// CloseAll tears down every open handle, for shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[string]*Handle)
	r.mu.Unlock()

	for id, handle := range handles {
		if closeErr := handle.Backend.Close(); closeErr != nil {
			r.logWarn(logMsgBackendCloseError, logAttrConnectionID, id, logAttrError, closeErr.Error())
		}
	}
}

// Count reports the number of open connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.handles)
}

func (r *Registry) selectOpener(source string) (Opener, error) {
	isPath := looksLikePath(source)

	if isPath {
		if statErr := r.statSource(source); statErr != nil {
			return Opener{}, errors.Join(tabledata.ErrSourceNotFound, statErr)
		}
	}

	for _, opener := range r.openers {
		if opener.FileBased != isPath {
			continue
		}

		if opener.Recognize(source) {
			return opener, nil
		}
	}

	return Opener{}, tabledata.ErrSourceNotRecognized
}

// looksLikePath distinguishes filesystem paths from URL-style sources
// such as postgres DSNs.
func looksLikePath(source string) bool {
	return !strings.Contains(source, "://")
}

func statPath(source string) error {
	_, err := os.Stat(source)

	return err
}

func (r *Registry) logInfo(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Info(msg, args...)
	}
}

func (r *Registry) logWarn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}

func (r *Registry) logError(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Error(msg, args...)
	}
}
