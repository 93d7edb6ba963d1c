package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharetube/watchparty/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
	usage        string
}

var (
	secret = configVar[string]{
		envKey:  "SERVER_SECRET",
		flagKey: "secret",
		usage:   "Secret used to sign session tokens",
	}
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
		usage:        "Server host",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 8080,
		usage:        "Server port",
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
		usage:        "Logging level",
	}
	storeKind = configVar[string]{
		envKey:       "SERVER_STORE",
		flagKey:      "store",
		defaultValue: app.StoreRedis,
		usage:        "Record store backend: redis, bolt or memory",
	}
	boltPath = configVar[string]{
		envKey:       "SERVER_BOLT_PATH",
		flagKey:      "bolt-path",
		defaultValue: "watchparty.db",
		usage:        "Database file of the bolt store",
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
		usage:        "Redis host",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
		usage:        "Redis port",
	}
	redisPassword = configVar[string]{
		envKey:  "REDIS_PASSWORD",
		flagKey: "redis-password",
		usage:   "Redis password",
	}
	storeTimeout = configVar[time.Duration]{
		envKey:       "SERVER_STORE_TIMEOUT",
		flagKey:      "store-timeout",
		defaultValue: 2 * time.Second,
		usage:        "Timeout of a single store operation",
	}
	recordTTL = configVar[time.Duration]{
		envKey:       "SERVER_RECORD_TTL",
		flagKey:      "record-ttl",
		defaultValue: 14 * 24 * time.Hour,
		usage:        "Expiry of redis records, refreshed on write (0 keeps them forever)",
	}
	syncInterval = configVar[time.Duration]{
		envKey:       "SERVER_SYNC_INTERVAL",
		flagKey:      "sync-interval",
		defaultValue: 2 * time.Second,
		usage:        "Playback poll interval",
	}
	chatInterval = configVar[time.Duration]{
		envKey:       "SERVER_CHAT_INTERVAL",
		flagKey:      "chat-interval",
		defaultValue: time.Second,
		usage:        "Chat poll interval, also used by push connections",
	}
	presenceWindow = configVar[time.Duration]{
		envKey:       "SERVER_PRESENCE_WINDOW",
		flagKey:      "presence-window",
		defaultValue: 10 * time.Second,
		usage:        "How long a heartbeat keeps a viewer active",
	}
	presenceSweepInterval = configVar[time.Duration]{
		envKey:       "SERVER_PRESENCE_SWEEP_INTERVAL",
		flagKey:      "presence-sweep-interval",
		defaultValue: time.Minute,
		usage:        "How often stale presence entries are removed",
	}
	chatHistoryLimit = configVar[int]{
		envKey:       "SERVER_CHAT_HISTORY_LIMIT",
		flagKey:      "chat-history-limit",
		defaultValue: 200,
		usage:        "Messages kept per room",
	}
	pushTransport = configVar[bool]{
		envKey:  "SERVER_PUSH_TRANSPORT",
		flagKey: "push-transport",
		usage:   "Enable the websocket push endpoint",
	}
	seedDemo = configVar[bool]{
		envKey:  "SERVER_SEED_DEMO",
		flagKey: "seed-demo",
		usage:   "Create demo accounts and the demo room on startup",
	}
	tokenTTL = configVar[time.Duration]{
		envKey:       "SERVER_TOKEN_TTL",
		flagKey:      "token-ttl",
		defaultValue: 24 * time.Hour,
		usage:        "Session token lifetime",
	}
)

func (v configVar[T]) bind() {
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

func stringVar(v configVar[string]) {
	pflag.String(v.flagKey, v.defaultValue, v.usage)
	v.bind()
}

func intVar(v configVar[int]) {
	pflag.Int(v.flagKey, v.defaultValue, v.usage)
	v.bind()
}

func boolVar(v configVar[bool]) {
	pflag.Bool(v.flagKey, v.defaultValue, v.usage)
	v.bind()
}

func durationVar(v configVar[time.Duration]) {
	pflag.Duration(v.flagKey, v.defaultValue, v.usage)
	v.bind()
}

func loadAppConfig() *app.AppConfig {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}

	stringVar(secret)
	stringVar(host)
	intVar(port)
	stringVar(logLevel)
	stringVar(storeKind)
	stringVar(boltPath)
	stringVar(redisHost)
	intVar(redisPort)
	stringVar(redisPassword)
	durationVar(storeTimeout)
	durationVar(recordTTL)
	durationVar(syncInterval)
	durationVar(chatInterval)
	durationVar(presenceWindow)
	durationVar(presenceSweepInterval)
	intVar(chatHistoryLimit)
	boolVar(pushTransport)
	boolVar(seedDemo)
	durationVar(tokenTTL)
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	return &app.AppConfig{
		Secret:                viper.GetString(secret.flagKey),
		Host:                  viper.GetString(host.flagKey),
		Port:                  viper.GetInt(port.flagKey),
		LogLevel:              viper.GetString(logLevel.flagKey),
		Store:                 viper.GetString(storeKind.flagKey),
		BoltPath:              viper.GetString(boltPath.flagKey),
		RedisHost:             viper.GetString(redisHost.flagKey),
		RedisPort:             viper.GetInt(redisPort.flagKey),
		RedisPassword:         viper.GetString(redisPassword.flagKey),
		StoreTimeout:          viper.GetDuration(storeTimeout.flagKey),
		RecordTTL:             viper.GetDuration(recordTTL.flagKey),
		SyncInterval:          viper.GetDuration(syncInterval.flagKey),
		ChatInterval:          viper.GetDuration(chatInterval.flagKey),
		PresenceWindow:        viper.GetDuration(presenceWindow.flagKey),
		PresenceSweepInterval: viper.GetDuration(presenceSweepInterval.flagKey),
		ChatHistoryLimit:      viper.GetInt(chatHistoryLimit.flagKey),
		PushTransport:         viper.GetBool(pushTransport.flagKey),
		SeedDemo:              viper.GetBool(seedDemo.flagKey),
		TokenTTL:              viper.GetDuration(tokenTTL.flagKey),
	}
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	if err := app.Run(ctx, appConfig); err != nil {
		log.Fatal(err)
	}
}
