package blob

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stratabase/borecore/internal/fault"
)

type memEntry struct {
	info Info
	data []byte
}

// Memory is an in-process Store used by tests and local experiments.
type Memory struct {
	mu   sync.RWMutex
	objs map[string]memEntry

	// FailList forces List to return an error; lets tests exercise the
	// best-effort scan contract.
	FailList bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory { return &Memory{objs: make(map[string]memEntry)} }

func (m *Memory) Driver() Driver { return DriverMemory }

func (m *Memory) List(_ context.Context, prefix string, max int) ([]Info, error) {
	if m.FailList {
		return nil, fault.StoreUnavailable(errListForced, "memory: list")
	}
	max = clampMax(max)
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Info, 0, len(m.objs))
	for k, v := range m.objs {
		if prefix == "" || strings.HasPrefix(k, prefix) {
			out = append(out, v.info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	if len(out) > max {
		out = out[:max]
	}
	return out, nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	obj, ok := m.objs[key]
	m.mu.RUnlock()
	if !ok {
		return nil, fault.NotFound("blob %s", key)
	}
	cp := make([]byte, len(obj.data))
	copy(cp, obj.data)
	return cp, nil
}

func (m *Memory) Put(_ context.Context, key string, body []byte, contentType string) error {
	cp := make([]byte, len(body))
	copy(cp, body)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objs[key] = memEntry{
		info: Info{Key: key, Size: int64(len(cp)), ContentType: contentType, LastModified: time.Now().UTC()},
		data: cp,
	}
	return nil
}

func (m *Memory) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objs[key]
	return ok, nil
}

func (m *Memory) Delete(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objs[key]
	if ok {
		delete(m.objs, key)
	}
	return ok, nil
}

var errListForced = &forcedError{}

type forcedError struct{}

func (*forcedError) Error() string { return "forced list failure" }
