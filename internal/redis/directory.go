package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Directory answers whether a user exists by checking membership of the
// email in a Redis set maintained by the identity service.
type Directory struct {
	client redis.Cmdable
	key    string
}

func NewDirectory(client redis.Cmdable, key string) *Directory {
	return &Directory{client: client, key: key}
}

// Exists reports whether email is a known user.
func (d *Directory) Exists(ctx context.Context, email string) (bool, error) {
	ok, err := d.client.SIsMember(ctx, d.key, email).Result()
	if err != nil {
		return false, fmt.Errorf("check user %q: %w", email, err)
	}
	return ok, nil
}

// Add marks emails as known users.
func (d *Directory) Add(ctx context.Context, emails ...string) error {
	if len(emails) == 0 {
		return nil
	}
	members := make([]interface{}, len(emails))
	for i, e := range emails {
		members[i] = e
	}
	if err := d.client.SAdd(ctx, d.key, members...).Err(); err != nil {
		return fmt.Errorf("add users: %w", err)
	}
	return nil
}
