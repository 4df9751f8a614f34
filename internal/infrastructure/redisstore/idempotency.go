package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix    = "idem:"
	pendingValue = "__pending__"
)

// ErrInFlight otra petición con la misma llave sigue en curso.
var ErrInFlight = errors.New("idempotency: petición en curso con la misma llave")

// StoredResponse respuesta guardada para repetir ante un reintento del cliente.
type StoredResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// IdempotencyStore guarda respuestas de mutaciones por Idempotency-Key.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore construye el store; ttl <= 0 usa 24h.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Begin toma la llave. Si ya hay respuesta guardada la devuelve; si otra petición la tiene tomada
// devuelve ErrInFlight.
func (s *IdempotencyStore) Begin(ctx context.Context, key string) (*StoredResponse, error) {
	ok, err := s.client.SetNX(ctx, keyPrefix+key, pendingValue, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("idempotency: setnx: %w", err)
	}
	if ok {
		return nil, nil
	}
	raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		// expiró entre SETNX y GET
		return s.Begin(ctx, key)
	}
	if err != nil {
		return nil, fmt.Errorf("idempotency: get: %w", err)
	}
	if string(raw) == pendingValue {
		return nil, ErrInFlight
	}
	var resp StoredResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("idempotency: decode: %w", err)
	}
	return &resp, nil
}

// Complete guarda la respuesta final bajo la llave.
func (s *IdempotencyStore) Complete(ctx context.Context, key string, resp StoredResponse) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("idempotency: encode: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency: set: %w", err)
	}
	return nil
}

// Abort libera la llave para que el cliente pueda reintentar.
func (s *IdempotencyStore) Abort(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("idempotency: del: %w", err)
	}
	return nil
}
