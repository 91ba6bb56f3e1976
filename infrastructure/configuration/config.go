package configuration

import (
	"fmt"
	"os"
	"strconv"

	"social-gateway/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	App         App                              `json:"app"`
	Database    Database                         `json:"database"`
	RedisClient RedisClient                      `json:"redisClient"`
	Gateway     Gateway                          `json:"gateway"`
	Recorder    Recorder                         `json:"recorder"`
	Providers   map[string]map[string]ProviderApp `json:"providers"`

	// ServiceAliases remaps external service names per tenant:
	// client name -> external name -> provider name.
	ServiceAliases map[string]map[string]string `json:"serviceAliases"`
}

type App struct {
	Port        int    `json:"port"`
	TLSEnabled  bool   `json:"tlsEnabled"`
	TLSCertFile string `json:"tlsCertFile"`
	TLSKeyFile  string `json:"tlsKeyFile"`
}

type Database struct {
	Psql Db `json:"psql"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisClient struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Gateway tunes the execution engine and the scheduler.
type Gateway struct {
	Environment         string `json:"environment"`
	MaxJobs             int    `json:"maxJobs"`
	MaxConcurrent       int    `json:"maxConcurrent"`
	RateLimitMax        int    `json:"rateLimitMax"`
	RateLimitUnit       string `json:"rateLimitUnit"` // second | minute | hour
	EnqueueDeltaMinutes int    `json:"enqueueDeltaMinutes"`
	SeedIntervalMinutes int    `json:"seedIntervalMinutes"`
}

// Recorder configures the record/replay transport.
type Recorder struct {
	Mode             string  `json:"mode"` // off | record | replay
	IndexPath        string  `json:"indexPath"`
	DelayMean        float64 `json:"delayMean"`
	DelayStdDev      float64 `json:"delayStdDev"`
	ErrorProbability float64 `json:"errorProbability"`
	ErrorStatus      int     `json:"errorStatus"`
}

// ProviderApp holds one provider's app credentials for one environment.
type ProviderApp struct {
	AppID       string `json:"appId"`
	AppSecret   string `json:"appSecret"`
	RedirectURI string `json:"redirectURI"`
	Scope       string `json:"scope"`
}

var C Config

func init() {
	LoadConfig()
	initApp(&C)
	initGateway(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initApp(C *Config) {
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10001
	}
	if C.Database.Psql.Name == "" {
		C.Database.Psql.Name = os.Getenv("DB_NAME")
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = os.Getenv("DB_HOST")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = os.Getenv("DB_PORT")
	}
	if C.Database.Psql.User == "" {
		C.Database.Psql.User = os.Getenv("DB_USER")
	}
	if C.Database.Psql.Password == "" {
		C.Database.Psql.Password = os.Getenv("DB_PASSWORD")
	}
}

func initGateway(C *Config) {
	if C.Gateway.Environment == "" {
		C.Gateway.Environment = os.Getenv("ENV")
	}
	if C.Gateway.Environment == "" {
		C.Gateway.Environment = "local"
	}
	if C.Gateway.MaxJobs == 0 {
		C.Gateway.MaxJobs = 10
	}
	if C.Gateway.MaxConcurrent == 0 {
		C.Gateway.MaxConcurrent = 25
	}
	if C.Gateway.RateLimitMax == 0 {
		C.Gateway.RateLimitMax = 60
	}
	if C.Gateway.RateLimitUnit == "" {
		C.Gateway.RateLimitUnit = "minute"
	}
	if C.Gateway.EnqueueDeltaMinutes == 0 {
		C.Gateway.EnqueueDeltaMinutes = 15
	}
	if C.Gateway.SeedIntervalMinutes == 0 {
		C.Gateway.SeedIntervalMinutes = 60
	}
	if C.Recorder.Mode == "" {
		C.Recorder.Mode = os.Getenv("RECORDER_MODE")
	}
	if C.Recorder.ErrorStatus == 0 {
		C.Recorder.ErrorStatus = 503
	}
}
