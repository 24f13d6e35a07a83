package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
}

type GameConfig struct {
	TickInterval   time.Duration `mapstructure:"tick_interval"`
	WaitingTimeout time.Duration `mapstructure:"waiting_timeout"`
	RoundDuration  time.Duration `mapstructure:"round_duration"`
	MaxPlayers     int           `mapstructure:"max_players"`
}

type LogConfig struct {
	File string `mapstructure:"file"`
}

type DatabaseConfig struct {
	// Driver selects the postgres access layer: "gorm" or "pq".
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.metrics_address", ":9100")
	viper.SetDefault("game.tick_interval", "100ms")
	viper.SetDefault("game.waiting_timeout", "10s")
	viper.SetDefault("game.round_duration", "30s")
	viper.SetDefault("game.max_players", 4)
	viper.SetDefault("database.driver", "gorm")

	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
