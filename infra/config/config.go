package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/drakos74/level-trader/client/binance"
	"github.com/drakos74/level-trader/internal/account"
	"github.com/drakos74/level-trader/internal/trader"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Path is the default location of the configuration file.
const Path = "infra/config/config.json"

// Store kinds.
const (
	FileStore  = "file"
	RedisStore = "redis"
	LocalStore = "local"
	// VoidStore keeps nothing, every run starts with fresh learners.
	VoidStore = "void"
)

// Ledger kinds.
const (
	FileLedger   = "file"
	SQLLedger    = "sql"
	MemoryLedger = "memory"
)

// Redis are the connection settings of the redis store.
type Redis struct {
	Addr      string `json:"addr"`
	Password  string `json:"password"`
	Namespace string `json:"namespace"`
}

// Server are the settings of the report server.
type Server struct {
	Port  int  `json:"port"`
	Debug bool `json:"debug"`
}

// Config is the configuration of the binaries.
type Config struct {
	// User names the environment variables of the secrets, see account.Format.
	User       string         `json:"user"`
	LogLevel   string         `json:"log_level"`
	DataDir    string         `json:"data_dir"`
	Store      string         `json:"store"`
	Ledger     string         `json:"ledger"`
	SQLitePath string         `json:"sqlite_path"`
	Redis      Redis          `json:"redis"`
	Server     Server         `json:"server"`
	Binance    binance.Config `json:"binance"`
	Trader     trader.Config  `json:"trader"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		User:       "main",
		LogLevel:   zerolog.InfoLevel.String(),
		DataDir:    "file-storage",
		Store:      FileStore,
		Ledger:     FileLedger,
		SQLitePath: "file-storage/trades.db",
		Redis: Redis{
			Addr:      "localhost:6379",
			Namespace: "levels",
		},
		Server: Server{
			Port: 8080,
		},
		Binance: binance.DefaultConfig("BTCUSDT"),
		Trader:  trader.DefaultConfig("BTCUSDT"),
	}
}

// Load starts from the defaults, overlays the json file at the path if there is one
// and applies the environment overrides. A .env file in the working directory is loaded first.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("could not load .env file")
	}
	config := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Warn().Str("path", path).Msg("no config file, using defaults")
		case err != nil:
			return config, fmt.Errorf("could not read config '%s': %w", path, err)
		default:
			if err := json.Unmarshal(b, &config); err != nil {
				return config, fmt.Errorf("could not parse config '%s': %w", path, err)
			}
			log.Info().Str("path", path).Msg("loaded config")
		}
	}
	config.override(os.LookupEnv)
	return config, nil
}

// override applies the environment variables that are set.
func (c *Config) override(lookup func(string) (string, bool)) {
	if v, ok := lookup("LEVELS_DATA_DIR"); ok {
		c.DataDir = v
	}
	if v, ok := lookup("LEVELS_LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := lookup("LEVELS_SYMBOL"); ok {
		symbol := strings.ToUpper(v)
		c.Binance.Symbol = symbol
		c.Trader.Pair = symbol
	}
	if v, ok := lookup("LEVELS_USER"); ok {
		c.User = v
	}
	if v, ok := lookup("LEVELS_SQLITE_PATH"); ok {
		c.SQLitePath = v
	}
	if v, ok := lookup("REDIS_ADDR"); ok {
		c.Redis.Addr = v
	}
	if v, ok := lookup("REDIS_PASSWORD"); ok {
		c.Redis.Password = v
	}
}

// Level parses the log level, defaulting to info.
func (c Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		log.Warn().Str("level", c.LogLevel).Msg("unknown log level, using info")
		return zerolog.InfoLevel
	}
	return level
}

// Token reads the telegram bot token and chat id of the user from the environment.
func (c Config) Token() account.Token {
	format := account.NewFormat(c.User, "")
	token := account.Token{
		Token: os.Getenv(format.Token()),
	}
	if id := os.Getenv(format.ChatID()); id != "" {
		chatID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			log.Warn().Err(err).Str("key", format.ChatID()).Msg("invalid chat id")
		}
		token.ID = chatID
	}
	return token
}
