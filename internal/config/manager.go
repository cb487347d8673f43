package config

import (
	"context"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"remindbot/pkg/logx"
)

// Manager watches the config file and publishes validated reloads to
// subscribers. Only hot-applicable sections (logging) are expected to be acted
// on; scheduler/admin/storage changes take effect on the next restart and the
// subscriber is expected to say so in its logs.
type Manager struct {
	path string

	mu  sync.RWMutex
	cfg *Config

	subsMu sync.Mutex
	subs   []chan *Config

	log logx.Logger

	// lastHash tracks the last committed file content so editor write bursts
	// without content changes don't produce redundant publishes.
	lastHash uint64
}

func NewManager(path string, cfg *Config, log logx.Logger) *Manager {
	m := &Manager{path: path, cfg: cfg, log: log}
	if b, err := os.ReadFile(path); err == nil {
		m.lastHash = hashBytes(b)
	}
	return m
}

func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) Subscribe(buffer int) chan *Config {
	ch := make(chan *Config, buffer)
	m.subsMu.Lock()
	m.subs = append(m.subs, ch)
	m.subsMu.Unlock()
	return ch
}

func (m *Manager) Unsubscribe(ch chan *Config) {
	if ch == nil {
		return
	}
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for i, s := range m.subs {
		if s == ch {
			m.subs = append(m.subs[:i], m.subs[i+1:]...)
			close(ch)
			return
		}
	}
}

func (m *Manager) publish(cfg *Config) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- cfg:
		default:
			// Subscriber lagging; it will pick up the next publish.
		}
	}
}

// Watch blocks until ctx is done, reloading the config on file changes.
// Invalid edits are rejected with a warning and the previous config stays
// committed.
func (m *Manager) Watch(ctx context.Context) error {
	if strings.TrimSpace(m.path) == "" {
		<-ctx.Done()
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory: editors replace the file, which drops a watch on
	// the file itself.
	dir := filepath.Dir(m.path)
	if err := w.Add(dir); err != nil {
		return err
	}

	var debounce *time.Timer
	var debounceC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(m.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(250 * time.Millisecond)
				debounceC = debounce.C
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(250 * time.Millisecond)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			m.log.Warn("config watcher error", logx.Err(err))
		case <-debounceC:
			m.reload()
		}
	}
}

func (m *Manager) reload() {
	b, err := os.ReadFile(m.path)
	if err != nil {
		m.log.Warn("config reload: read failed", logx.Err(err))
		return
	}
	h := hashBytes(b)

	m.mu.Lock()
	same := h == m.lastHash
	m.mu.Unlock()
	if same {
		m.log.Debug("config reload: no content change")
		return
	}

	cfg, err := Load(m.path)
	if err != nil {
		m.log.Warn("config reload rejected, keeping previous", logx.Err(err))
		return
	}

	m.mu.Lock()
	m.cfg = cfg
	m.lastHash = h
	m.mu.Unlock()

	m.log.Info("config reloaded")
	m.publish(cfg)
}

func hashBytes(b []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}
