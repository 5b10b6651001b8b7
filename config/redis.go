package config

import "github.com/redis/go-redis/v9"

func ConnectToRedis(conf Redis) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: conf.Host})
}
