package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/constants"
)

type fileContent struct {
	UpdatedAt time.Time         `json:"updatedAt"`
	Entries   map[string]string `json:"entries"`
	Origin    string            `json:"origin"`
}

// FileStore keeps all keys in one JSON document so several processes on one machine can share a
// cart. Writes replace the file atomically and changes are observed with fsnotify, which makes
// Publish a no-op.
type FileStore struct {
	path   string
	origin string
	mu     sync.Mutex
}

func NewFileStore(path string, origin string) (*FileStore, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed resolving path=%s with error=%w", path, err)
	}
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed creating directory for path=%s with error=%w", path, err)
	}
	return &FileStore{path: path, origin: origin}, nil
}

func (s *FileStore) read() (fileContent, error) {
	content := fileContent{Entries: map[string]string{}}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return content, nil
	}
	if err != nil {
		return content, fmt.Errorf("failed reading path=%s with error=%w", s.path, err)
	}
	if len(data) == 0 {
		return content, nil
	}
	if err = json.Unmarshal(data, &content); err != nil {
		return fileContent{Entries: map[string]string{}}, fmt.Errorf("failed decoding path=%s with error=%w", s.path, err)
	}
	if content.Entries == nil {
		content.Entries = map[string]string{}
	}
	return content, nil
}

func (s *FileStore) write(content fileContent) error {
	content.Origin = s.origin
	content.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed encoding path=%s with error=%w", s.path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("failed creating temp file with error=%w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed writing temp file with error=%w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed closing temp file with error=%w", err)
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed replacing path=%s with error=%w", s.path, err)
	}
	return nil
}

func (s *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, err := s.read()
	if err != nil {
		return "", false, err
	}
	value, ok := content.Entries[key]
	return value, ok, nil
}

// Set rewrites an unreadable file from scratch rather than failing forever.
func (s *FileStore) Set(_ context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, _ := s.read()
	content.Entries[key] = value
	return s.write(content)
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, _ := s.read()
	if _, ok := content.Entries[key]; !ok {
		return nil
	}
	delete(content.Entries, key)
	return s.write(content)
}

func (s *FileStore) Publish(context.Context, Event) error {
	return nil
}

func (s *FileStore) Subscribe(c context.Context) (<-chan Event, func(), error) {
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "FileStore Subscribe").
		Str("path", s.path).
		Logger()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("failed creating watcher with error=%w", err)
	}
	if err = watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return nil, nil, fmt.Errorf("failed watching path=%s with error=%w", s.path, err)
	}

	events := make(chan Event, subscriberBuffer)
	var once sync.Once
	cancel := func() {
		once.Do(func() { _ = watcher.Close() })
	}

	go func() {
		defer close(events)
		defer cancel()
		for {
			select {
			case <-c.Done():
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Error().Err(err).Msg("failed watching storage file")
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != s.path {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
					continue
				}
				event := Event{At: time.Now().UTC()}
				s.mu.Lock()
				content, err := s.read()
				s.mu.Unlock()
				if err == nil {
					event.Origin = content.Origin
					event.At = content.UpdatedAt
				}
				select {
				case events <- event:
				default:
				}
			}
		}
	}()

	return events, cancel, nil
}
