package database

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisDB cliente Redis usado como segundo nivel del caché de reportes
type RedisDB struct {
	Client *redis.Client
}

func NewRedisDB(url, password string, db int, logger *zap.Logger) (*RedisDB, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Una contraseña explícita tiene prioridad sobre la de la URL
	if password != "" {
		opt.Password = password
	}
	opt.DB = db

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	logger.Info("Redis connection established",
		zap.String("addr", opt.Addr),
		zap.Int("db", db),
	)

	return &RedisDB{Client: client}, nil
}

func (r *RedisDB) Close() error {
	return r.Client.Close()
}

func (r *RedisDB) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

// GetStats retorna la sección "stats" de INFO
func (r *RedisDB) GetStats(ctx context.Context) (string, error) {
	return r.Client.Info(ctx, "stats").Result()
}

// KeyCount número de claves en la base seleccionada
func (r *RedisDB) KeyCount(ctx context.Context) (int, error) {
	n, err := r.Client.DBSize(ctx).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// UsedMemory devuelve used_memory en bytes según INFO memory
func (r *RedisDB) UsedMemory(ctx context.Context) (int64, error) {
	info, err := r.Client.Info(ctx, "memory").Result()
	if err != nil {
		return 0, err
	}
	return parseUsedMemory(info), nil
}

func parseUsedMemory(info string) int64 {
	for _, line := range strings.Split(info, "\n") {
		if !strings.HasPrefix(line, "used_memory:") {
			continue
		}
		value := strings.TrimSpace(strings.TrimPrefix(line, "used_memory:"))
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
		break
	}
	return 0
}
