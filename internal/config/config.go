package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DatabaseURL string
	JWTSecret   string
	HTTPAddr    string
	Location    *time.Location
	LogLevel    string
	Env         string // dev|prod
	SentryDSN   string
	Release     string

	Redis       Redis
	S3          S3
	CORSOrigins []string

	StatusRefreshInterval time.Duration
	// DeansListCron is a robfig/cron spec; empty disables the nightly snapshot.
	DeansListCron string
}

type Redis struct {
	Addr     string // empty disables the event queue
	Password string
	DB       int
	Queue    string
}

type S3 struct {
	Bucket    string // empty disables report archiving
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

func Load() (*Config, error) {
	tz := getenv("TZ", "Asia/Manila")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.Local
	}

	redisDB, err := strconv.Atoi(getenv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("REDIS_DB: %w", err)
	}
	refresh, err := time.ParseDuration(getenv("STATUS_REFRESH_INTERVAL", "1m"))
	if err != nil || refresh <= 0 {
		return nil, fmt.Errorf("STATUS_REFRESH_INTERVAL: must be a positive duration")
	}

	cfg := &Config{
		DatabaseURL: mustEnv("DATABASE_URL"),
		JWTSecret:   mustEnv("JWT_SECRET"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		Location:    loc,
		LogLevel:    getenv("LOG_LEVEL", "info"),
		Env:         getenv("ENV", "dev"),
		SentryDSN:   os.Getenv("SENTRY_DSN"),
		Release:     os.Getenv("RELEASE"),
		Redis: Redis{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
			Queue:    getenv("EVENTS_QUEUE", "acadify:events"),
		},
		S3: S3{
			Bucket:    os.Getenv("S3_BUCKET"),
			Region:    getenv("S3_REGION", "ap-southeast-1"),
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
		},
		CORSOrigins:           splitList(os.Getenv("CORS_ORIGINS")),
		StatusRefreshInterval: refresh,
		DeansListCron:         strings.TrimSpace(os.Getenv("DEANSLIST_CRON")),
	}
	return cfg, nil
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("required env " + k + " is empty")
	}
	return v
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
