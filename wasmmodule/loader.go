// Package wasmmodule loads and caches the compiled WASM module bytes a
// process's evaluations run against: the module metadata lives in
// persistence, the binary itself is cached locally and, failing that,
// fetched from the network.
package wasmmodule

import (
	"container/list"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/permaweb/cu/cuerr"
)

// Compiled is the binary a worker compiles once and then reuses across
// evaluations. The compilation step itself belongs to the evaluator; this
// package only owns the cached bytes and their provenance.
type Compiled struct {
	ModuleID string
	Binary   []byte
}

// Size returns the number of bytes the compiled module's binary form
// occupies, for cache accounting.
func (c Compiled) Size() int {
	return len(c.Binary)
}

// Fetcher downloads a module's binary from the network when it is absent
// from both the cache and the local binary directory.
type Fetcher interface {
	Fetch(ctx context.Context, moduleID string) ([]byte, error)
}

// HTTPFetcher fetches a module's binary from a fixed base URL, following
// the network's convention of addressing content by id under the base
// path.
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
}

func (f HTTPFetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}

// Fetch downloads the binary for moduleID from BaseURL/moduleID.
func (f HTTPFetcher) Fetch(ctx context.Context, moduleID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+"/"+moduleID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, cuerr.NotFound("module-binary", moduleID)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("wasmmodule: fetch failed with status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// Loader caches compiled module binaries, bounded by a maximum entry
// count, falling back from cache to local disk to the network.
//
// All exported methods are safe for concurrent use.
type Loader struct {
	// Dir is the local binary directory (WASM_BINARY_FILE_DIRECTORY).
	Dir string

	// MaxSize bounds the number of entries kept in memory.
	MaxSize int

	// Fetch downloads a module's binary when it's absent locally. If nil,
	// Load fails with NotFound on a local miss.
	Fetch Fetcher

	m     sync.Mutex
	items map[string]*list.Element
	order *list.List
}

func (l *Loader) init() {
	if l.items == nil {
		l.items = make(map[string]*list.Element)
		l.order = list.New()
	}
}

// Load returns the compiled module for moduleID, populating the cache
// from disk or the network on a miss, and persisting a network fetch to
// disk for next time.
func (l *Loader) Load(ctx context.Context, moduleID string) (Compiled, error) {
	l.m.Lock()
	l.init()
	if elem, ok := l.items[moduleID]; ok {
		l.order.MoveToFront(elem)
		c := elem.Value.(Compiled)
		l.m.Unlock()
		return c, nil
	}
	l.m.Unlock()

	binary, err := l.loadBinary(ctx, moduleID)
	if err != nil {
		return Compiled{}, err
	}

	c := Compiled{ModuleID: moduleID, Binary: binary}
	l.store(moduleID, c)

	return c, nil
}

func (l *Loader) loadBinary(ctx context.Context, moduleID string) ([]byte, error) {
	if l.Dir != "" {
		data, err := os.ReadFile(filepath.Join(l.Dir, moduleID))
		if err == nil {
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if l.Fetch == nil {
		return nil, cuerr.NotFound("module-binary", moduleID)
	}

	data, err := l.Fetch.Fetch(ctx, moduleID)
	if err != nil {
		return nil, err
	}

	if l.Dir != "" {
		if err := os.MkdirAll(l.Dir, 0o755); err == nil {
			_ = os.WriteFile(filepath.Join(l.Dir, moduleID), data, 0o644)
		}
	}

	return data, nil
}

func (l *Loader) store(moduleID string, c Compiled) {
	l.m.Lock()
	defer l.m.Unlock()
	l.init()

	if elem, ok := l.items[moduleID]; ok {
		l.order.MoveToFront(elem)
		elem.Value = c
		return
	}

	l.items[moduleID] = l.order.PushFront(c)

	if l.MaxSize > 0 {
		for l.order.Len() > l.MaxSize {
			back := l.order.Back()
			if back == nil {
				break
			}
			evicted := back.Value.(Compiled)
			l.order.Remove(back)
			delete(l.items, evicted.ModuleID)
		}
	}
}
