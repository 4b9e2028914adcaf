package resource

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zeusync/engine/internal/core/observability/log"
	"github.com/zeusync/engine/internal/core/stringid"
	"golang.org/x/sync/errgroup"
)

var (
	ErrLoaderClosed = errors.New("resource loader is closed")
	ErrNotFound     = errors.New("resource not found")
	ErrEmptyPath    = errors.New("resource path is empty")
)

// Source fetches the raw bytes for a resource path. It runs on a worker goroutine.
type Source func(ctx context.Context, path string) ([]byte, error)

// FileSource reads resources relative to root.
func FileSource(root string) Source {
	return func(_ context.Context, path string) ([]byte, error) {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(path)))
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return data, err
	}
}

// MapSource serves resources from memory.
func MapSource(files map[string][]byte) Source {
	return func(_ context.Context, path string) ([]byte, error) {
		data, ok := files[path]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return data, nil
	}
}

// Loader resolves resources on a bounded pool of background workers.
// Request and Release are called from the frame loop and never block on I/O.
type Loader struct {
	source Source
	logger log.Log

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	mu        sync.Mutex
	resources map[stringid.ID]*Resource
	pending   []*Resource
	closed    bool
	wake      chan struct{}
	done      chan struct{}
}

func NewLoader(source Source, workers int, logger log.Log) *Loader {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	l := &Loader{
		source:    source,
		logger:    logger.Named("resource"),
		ctx:       gctx,
		cancel:    cancel,
		group:     group,
		resources: make(map[stringid.ID]*Resource),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	go l.dispatch()
	return l
}

// Request returns the shared handle for path, starting a load on first use.
func (l *Loader) Request(path string) (*Resource, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	id := stringid.New(path)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrLoaderClosed
	}
	if r, ok := l.resources[id]; ok {
		r.refs++
		return r, nil
	}

	r := &Resource{id: id, path: path, refs: 1}
	l.resources[id] = r
	l.pending = append(l.pending, r)
	select {
	case l.wake <- struct{}{}:
	default:
	}
	return r, nil
}

// Release drops one reference; the last release forgets the resource.
func (l *Loader) Release(r *Resource) {
	if r == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if r.refs == 0 {
		return
	}
	r.refs--
	if r.refs > 0 {
		return
	}
	delete(l.resources, r.id)
	r.state.Store(int32(StateReleased))
}

// Len reports how many distinct resources are currently referenced.
func (l *Loader) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.resources)
}

// Close stops accepting requests and waits for in-flight loads.
func (l *Loader) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	close(l.wake)
	<-l.done
	l.cancel()
	return nil
}

func (l *Loader) dispatch() {
	defer close(l.done)
	for range l.wake {
		l.mu.Lock()
		batch := l.pending
		l.pending = nil
		l.mu.Unlock()

		for _, r := range batch {
			l.group.Go(func() error {
				l.load(r)
				return nil
			})
		}
	}
	_ = l.group.Wait()
}

func (l *Loader) load(r *Resource) {
	if r.State() == StateReleased {
		return
	}
	start := time.Now()
	data, err := l.source(l.ctx, r.path)
	r.complete(data, err)
	if err != nil {
		l.logger.Warn("resource load failed", log.String("path", r.path), log.Error(err))
		return
	}
	l.logger.Debug("resource loaded",
		log.String("path", r.path),
		log.Int("bytes", len(data)),
		log.Duration("took", time.Since(start)),
	)
}
