package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/richd0tcom/yaku/internal/domain"
)

type QueueMode string

const (
	QueueModeDirect  QueueMode = "direct"
	QueueModeKafka   QueueMode = "kafka"
	QueueModeChannel QueueMode = "channel"
)

const (
	defaultBaseURL    = "https://api.rainmaker.espressif.com"
	defaultNodeID     = "USANptj2EUMgXBjNZnwqhE"
	defaultParamGroup = "Temperature Sensor"
	defaultDatabase   = "Yaku"
	defaultCollection = "Nodo 1"
	defaultTopic      = "yaku-records"
)

// Config holds everything the ingestion process needs. Credentials and the Mongo URI
// normally come from the accounts file referenced by YAKU_CONFIG.
type Config struct {
	RainMaker RainMakerConfig `yaml:"rainmaker"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Kafka     KafkaConfig     `yaml:"kafka"`

	PollInterval time.Duration `yaml:"poll_interval"`
	FailFast     bool          `yaml:"fail_fast"`
	QueueMode    QueueMode     `yaml:"queue_mode"`
	WorkerCount  int           `yaml:"worker_count"`
	BatchSize    int           `yaml:"batch_size"`
	Port         string        `yaml:"port"`
	LogLevel     string        `yaml:"log_level"`
	LogJSON      bool          `yaml:"log_json"`
}

type RainMakerConfig struct {
	BaseURL     string             `yaml:"base_url"`
	Credentials domain.Credentials `yaml:"credentials"`
	NodeID      string             `yaml:"node_id"`
	ParamGroup  string             `yaml:"param_group"`
	ReuseToken  bool               `yaml:"reuse_token"`
	Timeout     time.Duration      `yaml:"timeout"`
}

type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

type KafkaConfig struct {
	Brokers string `yaml:"brokers"`
	Topic   string `yaml:"topic"`
}

// Load reads the optional YAML file named by YAKU_CONFIG, then applies env overrides.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("YAKU_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		RainMaker: RainMakerConfig{
			BaseURL:    defaultBaseURL,
			NodeID:     defaultNodeID,
			ParamGroup: defaultParamGroup,
			Timeout:    10 * time.Second,
		},
		Mongo: MongoConfig{
			Database:   defaultDatabase,
			Collection: defaultCollection,
		},
		Kafka: KafkaConfig{
			Brokers: "localhost:9092",
			Topic:   defaultTopic,
		},
		PollInterval: 60 * time.Second,
		QueueMode:    QueueModeDirect,
		WorkerCount:  1,
		BatchSize:    10,
		Port:         "8080",
		LogLevel:     "info",
	}
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config '%s': %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config '%s': %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.RainMaker.BaseURL = getEnv("RAINMAKER_BASE_URL", cfg.RainMaker.BaseURL)
	cfg.RainMaker.Credentials.UserName = getEnv("RAINMAKER_USER", cfg.RainMaker.Credentials.UserName)
	cfg.RainMaker.Credentials.Password = getEnv("RAINMAKER_PASSWORD", cfg.RainMaker.Credentials.Password)
	cfg.RainMaker.NodeID = getEnv("RAINMAKER_NODE_ID", cfg.RainMaker.NodeID)
	cfg.RainMaker.ParamGroup = getEnv("RAINMAKER_PARAM_GROUP", cfg.RainMaker.ParamGroup)
	cfg.RainMaker.ReuseToken = getEnvBool("RAINMAKER_REUSE_TOKEN", cfg.RainMaker.ReuseToken)
	cfg.RainMaker.Timeout = getEnvDuration("HTTP_TIMEOUT", cfg.RainMaker.Timeout)

	cfg.Mongo.URI = getEnv("MONGO_URI", cfg.Mongo.URI)
	cfg.Mongo.Database = getEnv("MONGO_DATABASE", cfg.Mongo.Database)
	cfg.Mongo.Collection = getEnv("MONGO_COLLECTION", cfg.Mongo.Collection)

	cfg.Kafka.Brokers = getEnv("KAFKA_BROKERS", cfg.Kafka.Brokers)
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", cfg.Kafka.Topic)

	cfg.PollInterval = getEnvDuration("POLL_INTERVAL", cfg.PollInterval)
	cfg.FailFast = getEnvBool("YAKU_FAIL_FAST", cfg.FailFast)
	cfg.QueueMode = QueueMode(strings.ToLower(getEnv("MESSAGE_QUEUE_TYPE", string(cfg.QueueMode))))
	cfg.WorkerCount = getEnvInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.BatchSize = getEnvInt("BATCH_SIZE", cfg.BatchSize)
	if port, ok := os.LookupEnv("PORT"); ok {
		cfg.Port = port
	}
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogJSON = getEnvBool("LOG_JSON", cfg.LogJSON)
}

func (c Config) Validate() error {
	if c.RainMaker.BaseURL == "" {
		return errors.New("RAINMAKER_BASE_URL is required")
	}
	if c.RainMaker.Credentials.UserName == "" || c.RainMaker.Credentials.Password == "" {
		return errors.New("rainmaker credentials are required (RAINMAKER_USER, RAINMAKER_PASSWORD or YAKU_CONFIG)")
	}
	if c.RainMaker.NodeID == "" {
		return errors.New("RAINMAKER_NODE_ID is required")
	}
	if c.Mongo.URI == "" {
		return errors.New("MONGO_URI is required")
	}
	if c.PollInterval <= 0 {
		return errors.New("POLL_INTERVAL must be positive")
	}
	switch c.QueueMode {
	case QueueModeDirect:
	case QueueModeKafka, QueueModeChannel:
		if c.QueueMode == QueueModeKafka && (c.Kafka.Brokers == "" || c.Kafka.Topic == "") {
			return errors.New("KAFKA_BROKERS and KAFKA_TOPIC are required in kafka mode")
		}
		if c.WorkerCount <= 0 || c.BatchSize <= 0 {
			return errors.New("WORKER_COUNT and BATCH_SIZE must be positive")
		}
	default:
		return fmt.Errorf("unknown MESSAGE_QUEUE_TYPE %q", c.QueueMode)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
