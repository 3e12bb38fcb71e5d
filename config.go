package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable read by the app.
const EnvPrefix = "BOOKS"

// Config defines the structure of the configuration file.
type Config struct {
	GitCommit               string         `yaml:"git_commit" envconfig:"BOOKS_GIT_COMMIT" json:"git_commit"`
	GitTag                  string         `yaml:"git_tag" envconfig:"BOOKS_GIT_TAG" json:"git_tag"`
	BuildTime               string         `yaml:"build_time" envconfig:"BOOKS_BUILD_TIME" json:"build_time"`
	IsProduction            bool           `yaml:"is_production" envconfig:"BOOKS_IS_PRODUCTION" json:"is_production"`
	LogLevel                zapcore.Level  `yaml:"log_level" envconfig:"BOOKS_LOG_LEVEL" json:"log_level"`
	LogFolder               string         `yaml:"log_folder" envconfig:"BOOKS_LOG_FOLDER" json:"log_folder"`
	LogMaxSize              int            `yaml:"log_max_size" envconfig:"BOOKS_LOG_MAX_SIZE" json:"log_max_size"`
	OpsEndpointsEnable      bool           `yaml:"ops_endpoints_enable" envconfig:"BOOKS_OPS_ENDPOINTS_ENABLE" json:"ops_endpoints_enable"`
	ProfilerEndpointsEnable bool           `yaml:"profiler_endpoints_enable" envconfig:"BOOKS_PROFILER_ENDPOINTS_ENABLE" json:"profiler_endpoints_enable"`
	Server                  ServerConfig   `yaml:"server" json:"server"`
	Database                DatabaseConfig `yaml:"database" json:"database"`
	Mirror                  MirrorConfig   `yaml:"mirror" json:"mirror"`
	Redis                   RedisConfig    `yaml:"redis" json:"redis"`
	BoltDB                  BoltDBConfig   `yaml:"boltdb" json:"boltdb"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"BOOKS_SERVER_HOST" json:"host"`
	Port            string        `yaml:"port" envconfig:"BOOKS_SERVER_PORT" json:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"BOOKS_SERVER_READ_TIMEOUT" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"BOOKS_SERVER_WRITE_TIMEOUT" json:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"BOOKS_SERVER_REQUEST_TIMEOUT" json:"request_timeout"` // Time to wait for a request to finish
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"BOOKS_SERVER_SHUTDOWN_TIMEOUT" json:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver" envconfig:"BOOKS_DATABASE_DRIVER" json:"driver"`
	DSN             string        `yaml:"dsn" envconfig:"BOOKS_DATABASE_DSN" json:"-"`
	BusyTimeout     time.Duration `yaml:"busy_timeout" envconfig:"BOOKS_DATABASE_BUSY_TIMEOUT" json:"busy_timeout"`
	MaxOpenConns    int           `yaml:"max_open_conns" envconfig:"BOOKS_DATABASE_MAX_OPEN_CONNS" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" envconfig:"BOOKS_DATABASE_MAX_IDLE_CONNS" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" envconfig:"BOOKS_DATABASE_CONN_MAX_LIFETIME" json:"conn_max_lifetime"`
}

type MirrorConfig struct {
	Enable     bool          `yaml:"enable" envconfig:"BOOKS_MIRROR_ENABLE" json:"enable"`
	PopTimeout time.Duration `yaml:"pop_timeout" envconfig:"BOOKS_MIRROR_POP_TIMEOUT" json:"pop_timeout"`
}

type RedisConfig struct {
	Host          string        `yaml:"host" envconfig:"BOOKS_REDIS_HOST" json:"host"`
	Port          string        `yaml:"port" envconfig:"BOOKS_REDIS_PORT" json:"port"`
	DialTimeout   time.Duration `yaml:"dial_timeout" envconfig:"BOOKS_REDIS_DIAL_TIMEOUT" json:"dial_timeout"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"BOOKS_REDIS_READ_TIMEOUT" json:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout" envconfig:"BOOKS_REDIS_WRITE_TIMEOUT" json:"write_timeout"`
	PoolSize      int           `yaml:"pool_size" envconfig:"BOOKS_REDIS_POOL_SIZE" json:"pool_size"`
	PoolTimeout   time.Duration `yaml:"pool_timeout" envconfig:"BOOKS_REDIS_POOL_TIMEOUT" json:"pool_timeout"`
	Username      string        `yaml:"username" envconfig:"BOOKS_REDIS_USERNAME" json:"username"`
	Password      string        `yaml:"password" envconfig:"BOOKS_REDIS_PASSWORD" json:"-"`
	DatabaseIndex int           `yaml:"db_index" envconfig:"BOOKS_REDIS_DATABASE_INDEX" json:"db_index"`
}

type BoltDBConfig struct {
	FilePath   string        `yaml:"filepath" envconfig:"BOOKS_BOLTDB_FILE_PATH" json:"filepath"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"BOOKS_BOLTDB_TIMEOUT" json:"timeout"`
	BucketName string        `yaml:"bucket_name" envconfig:"BOOKS_BOLTDB_BUCKET_NAME" json:"bucket_name"`
}

// LoadConfigFile provides an instance of config structure for the all application.
func LoadConfigFile(configFile string) (*Config, error) {
	file, err := os.Open(configFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	cfg := &Config{}
	yd := yaml.NewDecoder(file)
	err = yd.Decode(cfg)

	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigEnvs reads the environments variables into the App config.
func LoadConfigEnvs(prefix string, config *Config) error {
	return envconfig.Process(prefix, config)
}

// InitConfig setup defaults values for non provided parameters
// and configures build tags values to be used if provided.
func InitConfig(config *Config, gitCommit, gitTag, buildTime string) error {
	if len(gitCommit) != 0 {
		config.GitCommit = gitCommit
	}

	if len(gitTag) != 0 {
		config.GitTag = gitTag
	}

	if len(buildTime) != 0 {
		config.BuildTime = buildTime
	}

	if len(config.Server.Host) == 0 || len(config.Server.Port) == 0 {
		return errors.New("make sure to set valid server address and port in configuration file")
	}

	if config.Server.RequestTimeout == 0 {
		config.Server.RequestTimeout = 30 * time.Second
	}

	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = 10 * time.Second
	}

	if len(config.LogFolder) == 0 {
		config.LogFolder = "./logs"
	}

	if config.LogMaxSize <= 0 {
		config.LogMaxSize = 10
	}

	if len(config.Database.Driver) == 0 {
		config.Database.Driver = DriverSQLite
	}

	if config.Database.Driver != DriverSQLite && config.Database.Driver != DriverPostgres {
		return fmt.Errorf("unsupported database driver %q: must be %s or %s", config.Database.Driver, DriverSQLite, DriverPostgres)
	}

	if len(config.Database.DSN) == 0 {
		if config.Database.Driver != DriverSQLite {
			return errors.New("make sure to set a valid database dsn in configuration file")
		}
		config.Database.DSN = "./.books.db"
	}

	if config.Database.BusyTimeout == 0 {
		config.Database.BusyTimeout = 5 * time.Second
	}

	if config.Mirror.Enable {
		if len(config.Redis.Host) == 0 || len(config.Redis.Port) == 0 {
			return errors.New("make sure to set valid redis address and port in configuration file")
		}

		if len(config.BoltDB.FilePath) == 0 || len(config.BoltDB.BucketName) == 0 {
			return errors.New("make sure to set valid boltdb file path and bucket name in configuration file")
		}

		if config.Mirror.PopTimeout <= 0 {
			config.Mirror.PopTimeout = time.Second
		}
	}

	return nil
}

// LoadAndInitConfigs loads in order the configs from various predefined sources
// then build the App configuration data. The env file is optional.
func LoadAndInitConfigs(configFile, envFile, gitCommit, gitTag, buildTime string) (*Config, error) {
	// Setup the yaml configuration from file.
	config, err := LoadConfigFile(configFile)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from file: %s", err)
	}

	// Set the environment configuration.
	err = godotenv.Load(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config, fmt.Errorf("failed to set environment configurations: %s", err)
	}

	// Use environment variables with prefix `BOOKS`.
	err = LoadConfigEnvs(EnvPrefix, config)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from environment: %s", err)
	}

	err = InitConfig(config, gitCommit, gitTag, buildTime)
	if err != nil {
		return config, fmt.Errorf("failed to initialize configurations: %s", err)
	}
	return config, nil
}
