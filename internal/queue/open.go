package queue

import (
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Open builds the queue for backend: "memory", "redis" or "amqp". The AMQP
// queue owns a broker connection; callers close it through Close.
func Open(backend string, rdb *redis.Client, amqpURL, name string) (Queue, error) {
	switch backend {
	case "memory":
		return NewInMemory(64), nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("redis queue needs a redis client")
		}
		return NewRedisQueue(rdb, name), nil
	case "amqp":
		q, err := NewAMQPQueue(amqpURL, name)
		if err != nil {
			return nil, err
		}
		return q, nil
	}
	return nil, fmt.Errorf("unknown queue backend %q", backend)
}

// Close releases q when it holds a connection.
func Close(q Queue) error {
	if c, ok := q.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
