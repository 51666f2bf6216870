package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the service configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	ServiceBus ServiceBusConfig
	NewRelic   NewRelicConfig
	WebSocket  WebSocketConfig
	Alerts     AlertConfig
	Power      PowerConfig
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Port int
	Mode string // debug, release, test
}

// DatabaseConfig holds the database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds the Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// ServiceBusConfig holds the Azure Service Bus configuration for the
// notification queue
type ServiceBusConfig struct {
	ConnectionString string
	QueueName        string
}

// NewRelicConfig holds the New Relic configuration
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// WebSocketConfig holds the device connection endpoint configuration
type WebSocketConfig struct {
	OriginPatterns []string
}

// AlertConfig holds the sensor alert thresholds
type AlertConfig struct {
	GasThreshold  float64
	TempThreshold float64
}

// PowerConfig maps device type names to rated wattage. The table is plain
// configuration so new device types can be added without a code change.
type PowerConfig struct {
	Ratings map[string]float64
}

// InitConfig initializes the configuration using Viper
func InitConfig(cfgFile string) error {
	// Set defaults for configuration
	setDefaults()

	// Use config file from the flag if provided
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in common directories with name "config"
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/homeconnect")
		viper.SetConfigName("config")
	}

	// Set environment variable prefix for config overrides
	viper.SetEnvPrefix("HOMECONNECT")

	// Enable automatic environment variable binding
	// For example, HOMECONNECT_SERVER_PORT will override server.port
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read configuration
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, using defaults and environment variables
			fmt.Println("No config file found, using defaults and environment variables")
		} else {
			// Config file was found but another error occurred
			return fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}

	return nil
}

// setDefaults sets default values for configuration
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "homeconnect")
	viper.SetDefault("database.password", "homeconnect")
	viper.SetDefault("database.dbname", "homeconnect_db")
	viper.SetDefault("database.sslmode", "disable")

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Service Bus defaults - no default connection string for security
	viper.SetDefault("servicebus.queuename", "device-notifications")

	// New Relic defaults
	viper.SetDefault("newrelic.appname", "HomeConnect API Local")
	viper.SetDefault("newrelic.enabled", false)

	// WebSocket defaults
	viper.SetDefault("websocket.originpatterns", []string{"*"})

	// Alert threshold defaults
	viper.SetDefault("alerts.gasthreshold", 300.0)
	viper.SetDefault("alerts.tempthreshold", 50.0)

	// Rated wattage per device type
	viper.SetDefault("power.ratings", map[string]float64{
		"Fire Alarm":   1.65,
		"LED Light 16": 5.65,
		"LED Light 24": 8.05,
	})
}

// Load loads the configuration
func Load() (*Config, error) {
	// Server
	serverConfig := ServerConfig{
		Port: viper.GetInt("server.port"),
		Mode: viper.GetString("server.mode"),
	}

	// Database
	dbConfig := DatabaseConfig{
		Host:     viper.GetString("database.host"),
		Port:     viper.GetInt("database.port"),
		User:     viper.GetString("database.user"),
		Password: viper.GetString("database.password"),
		DBName:   viper.GetString("database.dbname"),
		SSLMode:  viper.GetString("database.sslmode"),
	}

	// Redis
	redisConfig := RedisConfig{
		Host:     viper.GetString("redis.host"),
		Port:     viper.GetInt("redis.port"),
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	}

	// Service Bus
	serviceBusConfig := ServiceBusConfig{
		ConnectionString: viper.GetString("servicebus.connectionstring"),
		QueueName:        viper.GetString("servicebus.queuename"),
	}

	// New Relic
	newRelicConfig := NewRelicConfig{
		AppName:    viper.GetString("newrelic.appname"),
		LicenseKey: viper.GetString("newrelic.licensekey"),
		Enabled:    viper.GetBool("newrelic.enabled"),
	}

	// WebSocket
	wsConfig := WebSocketConfig{
		OriginPatterns: viper.GetStringSlice("websocket.originpatterns"),
	}

	// Alerts
	alertConfig := AlertConfig{
		GasThreshold:  viper.GetFloat64("alerts.gasthreshold"),
		TempThreshold: viper.GetFloat64("alerts.tempthreshold"),
	}

	// Power ratings keyed by device type name
	ratings := make(map[string]float64)
	for name, watts := range viper.GetStringMap("power.ratings") {
		switch w := watts.(type) {
		case float64:
			ratings[name] = w
		case int:
			ratings[name] = float64(w)
		}
	}
	powerConfig := PowerConfig{Ratings: ratings}

	return &Config{
		Server:     serverConfig,
		Database:   dbConfig,
		Redis:      redisConfig,
		ServiceBus: serviceBusConfig,
		NewRelic:   newRelicConfig,
		WebSocket:  wsConfig,
		Alerts:     alertConfig,
		Power:      powerConfig,
	}, nil
}
