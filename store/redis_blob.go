package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const redisBlobPrefix = "agent:blob:"

// RedisBlobStore shares blobs between agents through one redis instance.
type RedisBlobStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ BlobStore = (*RedisBlobStore)(nil)

// NewRedisBlobStore stores blobs with the given expiry; zero keeps them.
func NewRedisBlobStore(client *redis.Client, ttl time.Duration) *RedisBlobStore {
	return &RedisBlobStore{client: client, ttl: ttl}
}

func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "failed to ping redis")
	}
	return client, nil
}

func (bs *RedisBlobStore) Put(ctx context.Context, name string, v interface{}) (string, error) {
	content, hash, err := EncodeBlob(v)
	if err != nil {
		return "", err
	}
	if err := bs.client.Set(ctx, redisBlobPrefix+hash, content, bs.ttl).Err(); err != nil {
		return "", errors.Wrapf(err, "failed to store blob %s", name)
	}
	return hash, nil
}

func (bs *RedisBlobStore) Get(ctx context.Context, hash string, v interface{}) error {
	content, err := bs.client.Get(ctx, redisBlobPrefix+hash).Bytes()
	if err != nil {
		if err == redis.Nil {
			return errors.Wrapf(ErrBlobNotFound, "%s", hash)
		}
		return errors.Wrap(err, "failed to get blob")
	}
	return decodeBlob(hash, content, v)
}
