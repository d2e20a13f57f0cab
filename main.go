package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"go-backoffice-gateway/logging"
	redis "go-backoffice-gateway/redis"
	"go-backoffice-gateway/vision"
)

type CompaniesHouseConfig struct {
	BaseUrl string `json:"base_url,omitempty"`
	ApiKey  string `json:"api_key"`
}

type Config struct {
	ServerConfig ServerConfig `json:"server_config"`

	LogLevel string `json:"log_level,omitempty"`

	VisionConfig         vision.Config        `json:"vision_config"`
	CompaniesHouseConfig CompaniesHouseConfig `json:"companies_house_config"`

	// Session auth is enabled only when both are set.
	JwtPrivateKeyPath string `json:"jwt_private_key_path,omitempty"`
	DashboardPassword string `json:"dashboard_password,omitempty"`

	StorageType         string                    `json:"storage_type"`
	RedisConfig         redis.RedisConfig         `json:"redis_config,omitempty"`
	RedisSentinelConfig redis.RedisSentinelConfig `json:"redis_sentinel_config,omitempty"`
}

func main() {
	configPath := flag.String("config", "", "Path for the config.json to use")
	flag.Parse()

	if *configPath == "" {
		slog.Error("please provide a config path using the --config flag")
		os.Exit(1)
	}

	config, err := readConfigFile(*configPath)
	if err != nil {
		slog.Error("failed to read config file", "path", *configPath, "error", err)
		os.Exit(1)
	}

	logging.InitLogger(config.LogLevel)
	slog.Info("Using config", "path", *configPath)

	ocrProvider, err := vision.NewGoogleVisionProvider(context.Background(), config.VisionConfig)
	if err != nil {
		slog.Error("failed to create vision provider", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := ocrProvider.Close(); err != nil {
			slog.Error("failed to close vision provider", "error", err)
		}
	}()

	cache, err := createCacheStorage(&config)
	if err != nil {
		slog.Error("failed to instantiate cache storage", "error", err)
		os.Exit(1)
	}

	var sessionTokens SessionTokenCreator
	if config.JwtPrivateKeyPath != "" {
		creator, err := NewRsaSessionTokenCreator(config.JwtPrivateKeyPath, "backoffice_gateway")
		if err != nil {
			slog.Error("failed to instantiate session token creator", "error", err)
			os.Exit(1)
		}
		sessionTokens = creator
	} else {
		slog.Warn("No jwt private key configured, API routes are unauthenticated")
	}

	serverState := ServerState{
		ocrProvider:       ocrProvider,
		companyClient:     NewCompaniesHouseClient(config.CompaniesHouseConfig.BaseUrl, config.CompaniesHouseConfig.ApiKey),
		cache:             cache,
		sessionTokens:     sessionTokens,
		dashboardPassword: config.DashboardPassword,
	}

	server, err := NewServer(&serverState, config.ServerConfig)
	if err != nil {
		slog.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	if err := server.ListenAndServe(); err != nil {
		slog.Error("failed to listen and serve", "error", err)
		os.Exit(1)
	}
}

func readConfigFile(path string) (Config, error) {
	configBytes, err := os.ReadFile(path)

	if err != nil {
		return Config{}, err
	}

	var config Config
	err = json.Unmarshal(configBytes, &config)

	if err != nil {
		return Config{}, err
	}

	return config, nil
}

func createCacheStorage(config *Config) (CacheStorage, error) {
	if config.StorageType == "redis" {
		slog.Info("Using redis cache storage")
		client, err := redis.NewRedisClient(&config.RedisConfig)
		if err != nil {
			return nil, err
		}
		return NewRedisCacheStorage(client, config.RedisConfig.Namespace), nil
	}
	if config.StorageType == "redis_sentinel" {
		slog.Info("Using redis sentinel cache storage")
		client, err := redis.NewRedisSentinelClient(&config.RedisSentinelConfig)
		if err != nil {
			return nil, err
		}
		return NewRedisCacheStorage(client, config.RedisSentinelConfig.Namespace), nil
	}
	if config.StorageType == "memory" || config.StorageType == "" {
		slog.Info("Using in memory cache storage")
		return NewInMemoryCacheStorage(), nil
	}
	return nil, fmt.Errorf("%v is not a valid storage type", config.StorageType)
}
