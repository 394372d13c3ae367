package credential

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PartitionCookie names the cookie carrying the browser's partition id for KVMedium.
const PartitionCookie = "x-auth-partition"

// ErrNotFound is returned by KV.Get when no token is stored for a partition.
var ErrNotFound = errors.New("credential not found")

// KV is a key-value backend for tokens.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// KVMedium keeps tokens in a KV backend. The browser only holds an opaque partition id.
type KVMedium struct {
	kv     KV
	opts   CookieOptions
	logger *zap.Logger
}

// NewKVMedium returns a Medium backed by kv.
func NewKVMedium(kv KV, opts CookieOptions, logger *zap.Logger) *KVMedium {
	return &KVMedium{kv: kv, opts: opts, logger: logger}
}

// Open implements Medium.
func (m *KVMedium) Open(w http.ResponseWriter, r *http.Request) Store {
	s := &kvStore{medium: m, w: w}
	if c, err := r.Cookie(PartitionCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			s.partition = c.Value
		}
	}
	return s
}

func storageKey(partition string) string {
	return Key + ":" + partition
}

type kvStore struct {
	medium    *KVMedium
	w         http.ResponseWriter
	partition string
}

func (s *kvStore) Write(ctx context.Context, token string, opts ...WriteOption) error {
	o := newWriteOptions(opts)
	if s.partition == "" {
		s.partition = uuid.NewString()
	}
	if err := s.medium.kv.Set(ctx, storageKey(s.partition), token); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	// Re-issued on every write so the remember-me choice of the latest login wins.
	http.SetCookie(s.w, s.medium.opts.cookie(PartitionCookie, s.partition, o.remember))
	return nil
}

func (s *kvStore) Read(ctx context.Context) (string, bool) {
	if s.partition == "" {
		return "", false
	}
	token, err := s.medium.kv.Get(ctx, storageKey(s.partition))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.medium.logger.Warn("credential read failed, treating as absent",
				zap.String("partition", s.partition), zap.Error(err))
		}
		return "", false
	}
	return token, token != ""
}

func (s *kvStore) Clear(ctx context.Context) error {
	http.SetCookie(s.w, s.medium.opts.expired(PartitionCookie))
	if s.partition == "" {
		return nil
	}
	key := storageKey(s.partition)
	s.partition = ""
	if err := s.medium.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}
