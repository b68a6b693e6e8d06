package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var validLogLevels = []string{"debug", "info", "warn", "error"}

// Validate performs business-rule validation on the loaded configuration.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range (got %d)", c.Server.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("database.max_conns must be >= 1 (got %d)", c.Database.MaxConns)
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database.min_conns (%d) exceeds max_conns (%d)", c.Database.MinConns, c.Database.MaxConns)
	}
	if !slices.Contains(validLogLevels, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("log.level must be one of %v (got %q)", validLogLevels, c.Log.Level)
	}
	if f := strings.ToLower(c.Log.Format); f != "json" && f != "text" {
		return fmt.Errorf("log.format must be json or text (got %q)", c.Log.Format)
	}
	if strings.TrimSpace(c.Redis.URL) == "" {
		return errors.New("redis.url is required")
	}
	if c.Kafka.Brokers != "" && c.Kafka.Partitions < 1 {
		return fmt.Errorf("kafka.partitions must be >= 1 (got %d)", c.Kafka.Partitions)
	}
	if c.Incident.UsersNotificationThreshold < 0 {
		return fmt.Errorf("incident.users_notification_threshold must be >= 0 (got %d)", c.Incident.UsersNotificationThreshold)
	}
	if c.Purge.BatchSize < 1 {
		return fmt.Errorf("purge.batch_size must be >= 1 (got %d)", c.Purge.BatchSize)
	}
	if c.Purge.Concurrency < 1 {
		return fmt.Errorf("purge.concurrency must be >= 1 (got %d)", c.Purge.Concurrency)
	}
	return nil
}
