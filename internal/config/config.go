package config

import (
	"os"
	"strconv"
)

type Config struct {
	AppPort       string
	AppBaseURL    string
	DBDSN         string
	JWTSecret     string
	JWTExpiresMin int

	UploadDir string

	RedisAddr     string
	RedisPassword string

	GoogleClientID string
	GoogleSecret   string
	GoogleRedirect string
	FrontendURL    string

	AdminEmail    string
	AdminPassword string
}

func Load() Config {
	expires, _ := strconv.Atoi(get("JWT_EXPIRES_MIN", "10080"))
	return Config{
		AppPort:       get("APP_PORT", "8080"),
		AppBaseURL:    get("APP_BASE_URL", ""),
		DBDSN:         must("DB_DSN"),
		JWTSecret:     must("JWT_SECRET"),
		JWTExpiresMin: expires,

		UploadDir: get("UPLOAD_DIR", "./uploads"),

		RedisAddr:     get("REDIS_ADDR", "localhost:6379"),
		RedisPassword: get("REDIS_PASSWORD", ""),

		GoogleClientID: get("GOOGLE_CLIENT_ID", ""),
		GoogleSecret:   get("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirect: get("GOOGLE_REDIRECT_URL", ""),
		FrontendURL:    get("FRONTEND_BASE_URL", "http://localhost:3000"),

		AdminEmail:    get("ADMIN_EMAIL", ""),
		AdminPassword: get("ADMIN_PASSWORD", ""),
	}
}

func get(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
