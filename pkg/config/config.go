package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Dropbox   DropboxConfig   `mapstructure:"dropbox"`
	Documents DocumentsConfig `mapstructure:"documents"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Session   SessionConfig   `mapstructure:"session"`
	School    SchoolInfo      `mapstructure:"school"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

type DropboxConfig struct {
	AccessToken string `mapstructure:"access_token"`
}

// DocumentsConfig holds the remote paths of the two ledgers.
type DocumentsConfig struct {
	StudentLedger string `mapstructure:"student_ledger"`
	PinLedger     string `mapstructure:"pin_ledger"`
}

type CacheConfig struct {
	Dir string `mapstructure:"dir"`
}

// RegistryConfig selects where guardian-student relations live: "file"
// (default) or "postgres".
type RegistryConfig struct {
	Backend string `mapstructure:"backend"`
	File    string `mapstructure:"file"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type SessionConfig struct {
	TTLMinutes int `mapstructure:"ttl_minutes"`
}

// SchoolInfo feeds the informational menu options.
type SchoolInfo struct {
	Name    string `mapstructure:"name"`
	Address string `mapstructure:"address"`
	Phone   string `mapstructure:"phone"`
	Email   string `mapstructure:"email"`
	Hours   string `mapstructure:"hours"`
	Website string `mapstructure:"website"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  "disable",
	}, nil
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("documents.student_ledger", "/datos_estudiantes.xlsx")
	v.SetDefault("documents.pin_ledger", "/relaciones.xlsx")
	v.SetDefault("cache.dir", filepath.Join(os.TempDir(), "pagosbot_dropbox_cache"))
	v.SetDefault("registry.backend", "file")
	v.SetDefault("registry.file", "encargados.json")
	v.SetDefault("session.ttl_minutes", 10)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		config.Database = dbConfig
	}

	// Get other environment variables
	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}

	if token := v.GetString("DROPBOX_ACCESS_TOKEN"); token != "" {
		config.Dropbox.AccessToken = token
	}

	return &config, nil
}
