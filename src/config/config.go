package config

import (
	"fmt"
	"os"
	"path"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const TIME_PARSE_FORMAT = "2006-01-02 15:04:05 -07:00"

type DatabaseConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"5432"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
	TimeZone string `env:"TIMEZONE" envDefault:"UTC"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD"`
	Name     string `env:"NAME" envDefault:"vpassdb"`
}

type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM" envDefault:"noreply@visitorpass.local"`
	FromName string `env:"FROM_NAME" envDefault:"Visitor Pass System"`
}

type PusherConfig struct {
	AppID   string `env:"APP_ID"`
	Key     string `env:"KEY"`
	Secret  string `env:"SECRET"`
	Cluster string `env:"CLUSTER"`
}

// Config is the process configuration read from the environment.
type Config struct {
	APIEnv    string `env:"API_ENV" envDefault:"local"`
	Port      string `env:"PORT" envDefault:"8080"`
	AppHost   string `env:"APP_HOST" envDefault:"http://localhost:4200"`
	JWTSecret string `env:"JWT_SECRET"`
	LogDir    string `env:"LOG_DIR" envDefault:"logs"`

	MaintenanceMode bool `env:"MAINTENANCE_MODE" envDefault:"false"`

	// Store selects persistence: postgres or memory.
	Store    string         `env:"STORE" envDefault:"postgres"`
	Database DatabaseConfig `envPrefix:"DATABASE_"`

	// Broker selects the durable channel: memory, kafka or aws.
	Broker            string `env:"BROKER" envDefault:"memory"`
	KafkaBroker       string `env:"KAFKA_BROKER"`
	KafkaGroupID      string `env:"KAFKA_GROUP_ID" envDefault:"notification-service"`
	SNSTopicArnPrefix string `env:"AWS_SNS_TOPIC_ARN_PREFIX"`
	SQSQueuePrefix    string `env:"AWS_SQS_QUEUE_PREFIX"`
	AWSRoleArn        string `env:"AWS_IAM_ROLE_ARN"`
	ConsumersPerQueue int    `env:"CONSUMERS_PER_QUEUE" envDefault:"1"`

	// Mailer selects the notification transport: log, smtp or ses.
	Mailer      string        `env:"MAILER" envDefault:"log"`
	SMTP        SMTPConfig    `envPrefix:"SMTP_"`
	SendTimeout time.Duration `env:"SEND_TIMEOUT" envDefault:"10s"`

	SweepInterval     time.Duration `env:"SWEEP_INTERVAL" envDefault:"15m"`
	RepublishInterval time.Duration `env:"REPUBLISH_INTERVAL" envDefault:"1m"`

	RedisHost     string        `env:"REDIS_HOST"`
	DedupeTTL     time.Duration `env:"DEDUPE_TTL" envDefault:"24h"`
	ResetTokenTTL time.Duration `env:"RESET_TOKEN_TTL" envDefault:"15m"`

	Pusher PusherConfig `envPrefix:"PUSHER_"`

	OTELEndpoint string `env:"OTEL_ENDPOINT"`
}

// Load reads .env when running locally and parses the environment into a Config.
func Load() (*Config, error) {
	if os.Getenv("API_ENV") == "local" {
		cwd, _ := os.Getwd()
		// a missing .env is fine locally, the defaults cover it
		_ = godotenv.Load(path.Join(cwd, ".env"))
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.ConsumersPerQueue < 1 {
		cfg.ConsumersPerQueue = 1
	}
	return &cfg, nil
}

func (c *Config) IsProd() bool {
	return c.APIEnv == "production"
}

func GetDSN(c DatabaseConfig) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode, c.TimeZone)
}
