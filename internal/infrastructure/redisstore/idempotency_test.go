package redisstore

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*IdempotencyStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewIdempotencyStore(client, time.Minute), mr
}

func TestIdempotency_PrimeraVezTomaLaLlave(t *testing.T) {
	s, _ := newStore(t)
	resp, err := s.Begin(context.Background(), "k1")
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestIdempotency_EnCurso(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	_, err := s.Begin(ctx, "k1")
	require.NoError(t, err)

	_, err = s.Begin(ctx, "k1")
	assert.ErrorIs(t, err, ErrInFlight)
}

func TestIdempotency_RepiteRespuestaGuardada(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	_, err := s.Begin(ctx, "k1")
	require.NoError(t, err)
	require.NoError(t, s.Complete(ctx, "k1", StoredResponse{Status: 201, ContentType: "application/json", Body: []byte(`{"ok":true}`)}))

	resp, err := s.Begin(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 201, resp.Status)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
}

func TestIdempotency_AbortLiberaLaLlave(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	_, err := s.Begin(ctx, "k1")
	require.NoError(t, err)
	require.NoError(t, s.Abort(ctx, "k1"))

	resp, err := s.Begin(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestIdempotency_Expira(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()
	_, err := s.Begin(ctx, "k1")
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	resp, err := s.Begin(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, resp)
}
