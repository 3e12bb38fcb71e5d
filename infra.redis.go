package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// GetRedisClient provides a ready to use redis client.
func GetRedisClient(config *RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", config.Host, config.Port),
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		PoolSize:     config.PoolSize,
		PoolTimeout:  config.PoolTimeout,
		Password:     config.Password,
		Username:     config.Username,
		DB:           config.DatabaseIndex,
	})

	// test connection.
	if pong, err := client.Ping(context.Background()).Result(); pong != "PONG" || err != nil {
		client.Close()
		return nil, fmt.Errorf("test connection failed: %v", err)
	}
	return client, nil
}
