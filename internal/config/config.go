package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env      string
	LogLevel string
	HTTPAddr string

	// storage adapter
	StorageDriver string
	StorageKey    string
	DataDir       string
	DBDSN         string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// name service client
	NamesEndpoint string
	NamesTimeout  time.Duration

	// proxy
	ProxyBackendURL string
	ProxyTimeout    time.Duration

	// rabbitMQ (dead letters); empty RabbitURL disables publishing
	RabbitURL         string
	DeadLetterQueue   string
	WorkerConcurrency int
}

const (
	DefaultStorageKey      = "brands_digger_chats"
	DefaultProxyBackendURL = "http://18.204.48.100:8080/generate/names"
)

func (c Config) IsDevelopment() bool {
	return c.Env != "production"
}

func Load() Config {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	driver := strings.ToLower(strings.TrimSpace(os.Getenv("STORAGE_DRIVER")))
	if driver == "" {
		driver = "file"
	}

	key := os.Getenv("STORAGE_KEY")
	if key == "" {
		key = DefaultStorageKey
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}

	// DSN demo (mysql):
	// app:apppass@tcp(127.0.0.1:3306)/brands_digger?charset=utf8mb4&parseTime=true&loc=Local
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = "file:brands_digger.db?cache=shared"
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "127.0.0.1:6379"
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	namesEndpoint := os.Getenv("NAMES_ENDPOINT")
	if namesEndpoint == "" {
		namesEndpoint = LocalNamesEndpoint(addr)
	}

	backendURL := os.Getenv("PROXY_BACKEND_URL")
	if backendURL == "" {
		backendURL = DefaultProxyBackendURL
	}

	queue := os.Getenv("DEAD_LETTER_QUEUE")
	if queue == "" {
		queue = "brands_digger.dead_letters"
	}

	concurrency := 2
	if v := os.Getenv("WORKER_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			concurrency = n
		}
	}
	if concurrency > 50 {
		concurrency = 50
	}

	return Config{
		Env:      env,
		LogLevel: logLevel,
		HTTPAddr: addr,

		StorageDriver: driver,
		StorageKey:    key,
		DataDir:       dataDir,
		DBDSN:         dsn,
		RedisAddr:     redisAddr,
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		NamesEndpoint: namesEndpoint,
		NamesTimeout:  durationEnv("NAMES_TIMEOUT", 90*time.Second),

		ProxyBackendURL: backendURL,
		ProxyTimeout:    durationEnv("PROXY_TIMEOUT", 60*time.Second),

		RabbitURL:         os.Getenv("RABBIT_URL"),
		DeadLetterQueue:   queue,
		WorkerConcurrency: concurrency,
	}
}

func durationEnv(name string, def time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def
	}
	return d
}

// LocalNamesEndpoint is the proxy route of a server listening on addr.
func LocalNamesEndpoint(addr string) string {
	return "http://127.0.0.1" + portOf(addr) + "/api/generate/names"
}

// portOf returns ":<port>" of a listen address, or ":8080" when it has none.
func portOf(addr string) string {
	i := strings.LastIndex(addr, ":")
	if i < 0 || i == len(addr)-1 {
		return ":8080"
	}
	return addr[i:]
}
