package credential_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"woorkroom-web/credential"
)

type brokenKV struct{}

func (brokenKV) Get(context.Context, string) (string, error) { return "", errors.New("connection refused") }
func (brokenKV) Set(context.Context, string, string) error   { return errors.New("connection refused") }
func (brokenKV) Delete(context.Context, string) error        { return errors.New("connection refused") }

func newRedisKV(t *testing.T) (*credential.RedisKV, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return credential.NewRedisKV(client), mr
}

// roundTrip writes a token in one request and reads it back in a second request that
// carries the cookies set by the first.
func roundTrip(t *testing.T, medium credential.Medium) {
	t.Helper()
	ctx := context.Background()

	rec := httptest.NewRecorder()
	store := medium.Open(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	_, ok := store.Read(ctx)
	require.False(t, ok)
	require.NoError(t, store.Write(ctx, "abc"))

	token, ok := store.Read(ctx)
	require.True(t, ok)
	assert.Equal(t, "abc", token)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		next.AddCookie(c)
	}
	reopened := medium.Open(httptest.NewRecorder(), next)
	token, ok = reopened.Read(ctx)
	require.True(t, ok)
	assert.Equal(t, "abc", token)

	require.NoError(t, reopened.Clear(ctx))
	assert.False(t, credential.Present(ctx, reopened))
	assert.False(t, credential.Present(ctx, medium.Open(httptest.NewRecorder(), next)))
}

func TestKVMedium_Memory(t *testing.T) {
	roundTrip(t, credential.NewKVMedium(credential.NewMemoryKV(), credential.CookieOptions{}, zap.NewNop()))
}

func TestKVMedium_Redis(t *testing.T) {
	kv, mr := newRedisKV(t)
	medium := credential.NewKVMedium(kv, credential.CookieOptions{}, zap.NewNop())
	roundTrip(t, medium)
	assert.Empty(t, mr.Keys())
}

func TestKVMedium_RedisKeyLayout(t *testing.T) {
	kv, mr := newRedisKV(t)
	medium := credential.NewKVMedium(kv, credential.CookieOptions{}, zap.NewNop())
	rec := httptest.NewRecorder()

	store := medium.Open(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	require.NoError(t, store.Write(context.Background(), "tok"))

	c := findCookie(t, rec, credential.PartitionCookie)
	require.NotNil(t, c)
	got, err := mr.Get(credential.Key + ":" + c.Value)
	require.NoError(t, err)
	assert.Equal(t, "tok", got)
	assert.Zero(t, mr.TTL(credential.Key+":"+c.Value))
}

func TestKVMedium_IgnoresForgedPartition(t *testing.T) {
	medium := credential.NewKVMedium(credential.NewMemoryKV(), credential.CookieOptions{}, zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: credential.PartitionCookie, Value: "../../etc"})

	assert.False(t, credential.Present(context.Background(), medium.Open(httptest.NewRecorder(), req)))
}

func TestKVMedium_FailsSoft(t *testing.T) {
	medium := credential.NewKVMedium(brokenKV{}, credential.CookieOptions{}, zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: credential.PartitionCookie, Value: "0b6f3c52-4f5c-4c8e-9d51-8d6f1f7a0c11"})
	store := medium.Open(httptest.NewRecorder(), req)

	assert.False(t, credential.Present(context.Background(), store))
	assert.ErrorIs(t, store.Write(context.Background(), "tok"), credential.ErrUnavailable)
	assert.ErrorIs(t, store.Clear(context.Background()), credential.ErrUnavailable)
}
