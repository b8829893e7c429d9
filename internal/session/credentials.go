package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/redis/go-redis/v9"
)

// DefaultCredentialKey is the fixed name the credential is stored under.
const DefaultCredentialKey = "auth_token"

// CredentialStore persists exactly one opaque credential string.
// Load returns "" and no error when nothing is stored.
type CredentialStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, credential string) error
	Remove(ctx context.Context) error
}

// RedisCredentialStore keeps the credential under a single Redis key.
type RedisCredentialStore struct {
	client redis.Cmdable
	key    string
}

// NewRedisCredentialStore builds a store over client. An empty key falls back
// to DefaultCredentialKey.
func NewRedisCredentialStore(client redis.Cmdable, key string) *RedisCredentialStore {
	if key == "" {
		key = DefaultCredentialKey
	}
	return &RedisCredentialStore{client: client, key: key}
}

func (s *RedisCredentialStore) Load(ctx context.Context) (string, error) {
	val, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load credential: %w", err)
	}
	return val, nil
}

func (s *RedisCredentialStore) Save(ctx context.Context, credential string) error {
	if err := s.client.Set(ctx, s.key, credential, 0).Err(); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (s *RedisCredentialStore) Remove(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("remove credential: %w", err)
	}
	return nil
}

// FileCredentialStore keeps the credential in a small JSON document on disk,
// keyed by name so the file format matches the Redis layout.
type FileCredentialStore struct {
	mu   sync.Mutex
	path string
	key  string
}

// NewFileCredentialStore builds a store writing to path.
func NewFileCredentialStore(path, key string) *FileCredentialStore {
	if key == "" {
		key = DefaultCredentialKey
	}
	return &FileCredentialStore{path: path, key: key}
}

func (s *FileCredentialStore) Load(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return "", err
	}
	return doc[s.key], nil
}

func (s *FileCredentialStore) Save(ctx context.Context, credential string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	doc[s.key] = credential
	return s.write(doc)
}

func (s *FileCredentialStore) Remove(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := doc[s.key]; !ok {
		return nil
	}
	delete(doc, s.key)
	if len(doc) == 0 {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove credential file: %w", err)
		}
		return nil
	}
	return s.write(doc)
}

func (s *FileCredentialStore) read() (map[string]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("open credential file: %w", err)
	}
	defer f.Close()

	doc := map[string]string{}
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode credential file: %w", err)
	}
	return doc, nil
}

// write replaces the file through a rename so a crash never leaves a torn document.
func (s *FileCredentialStore) write(doc map[string]string) error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create credential dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create credential file: %w", err)
	}
	if err := json.NewEncoder(f).Encode(doc); err != nil {
		f.Close()
		return fmt.Errorf("encode credential file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close credential file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace credential file: %w", err)
	}
	return nil
}
