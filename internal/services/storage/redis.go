package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/hf-quote-tgbot-go/internal/config"
	"github.com/hf-quote-tgbot-go/internal/models"
)

const redisUserIndex = "users"

// RedisDirectory stores each user as a hash and keeps a set of known ids
type RedisDirectory struct {
	client *redis.Client
	logger logrus.FieldLogger
}

func NewRedisDirectory(cfg *config.RedisConfig, logger logrus.FieldLogger) (*RedisDirectory, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisDirectoryWithClient(client, logger), nil
}

// NewRedisDirectoryWithClient uses an existing client
func NewRedisDirectoryWithClient(client *redis.Client, logger logrus.FieldLogger) *RedisDirectory {
	return &RedisDirectory{client: client, logger: logger}
}

func userKey(userID string) string {
	return fmt.Sprintf("users:%s", userID)
}

func (r *RedisDirectory) Upsert(ctx context.Context, user models.UserRecord) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, userKey(user.UserID),
			"user_id", user.UserID,
			"username", user.DisplayName,
			"last_seen", user.LastSeen,
		)
		pipe.SAdd(ctx, redisUserIndex, user.UserID)
		return nil
	})
	return err
}

func (r *RedisDirectory) Get(ctx context.Context, userID string) (*models.UserRecord, error) {
	fields, err := r.client.HGetAll(ctx, userKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrUserNotFound
	}
	user := recordFromHash(userID, fields)
	return &user, nil
}

func (r *RedisDirectory) GetAll(ctx context.Context) ([]models.UserRecord, error) {
	ids, err := r.client.SMembers(ctx, redisUserIndex).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)

	cmds := make([]*redis.StringStringMapCmd, len(ids))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, userKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	users := make([]models.UserRecord, 0, len(ids))
	for i, id := range ids {
		fields := cmds[i].Val()
		if len(fields) == 0 {
			r.logger.WithField("user_id", id).Warn("User index points to a missing hash")
			continue
		}
		users = append(users, recordFromHash(id, fields))
	}
	return users, nil
}

func (r *RedisDirectory) Close() error {
	return r.client.Close()
}

func recordFromHash(userID string, fields map[string]string) models.UserRecord {
	return models.UserRecord{
		UserID:      userID,
		DisplayName: fields["username"],
		LastSeen:    fields["last_seen"],
	}
}
