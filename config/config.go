package config

import (
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Environment string
	DatabaseURL string
	RedisURL    string

	// Capture settings
	AudioDuration   time.Duration
	LocationTimeout time.Duration
	JPEGQuality     int
	PhotoMaxEdge    int
	EvidenceDir     string

	// Dispatch settings
	SMSMaxAttempts int
	SMSBackoffBase time.Duration
	LenientRollup  bool

	// Persistence backend: "mongodb", "firestore" or "mock"
	SOSStoreProvider string

	// Firebase Config
	FirebaseProjectID   string
	FirebaseCredentials string

	// Twilio Config
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string

	// SMTP Settings
	EmailProvider string
	SMTPHost      string
	SMTPPort      string
	SMTPUsername  string
	SMTPPassword  string
	SMTPFrom      string

	// Object store (evidence uploads)
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIORegion    string
	MinIOUseSSL    bool
}

func Load() *Config {
	// Best-effort; environment variables win over .env
	godotenv.Load()

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		DatabaseURL: getEnv("DATABASE_URL", "mongodb://localhost:27017/resqall"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),

		// Capture settings
		AudioDuration:   getEnvAsDuration("AUDIO_DURATION", 30*time.Second),
		LocationTimeout: getEnvAsDuration("LOCATION_TIMEOUT", 8*time.Second),
		JPEGQuality:     getEnvAsInt("JPEG_QUALITY", 70),
		PhotoMaxEdge:    getEnvAsInt("PHOTO_MAX_EDGE", 1600),
		EvidenceDir:     getEnv("EVIDENCE_DIR", ""),

		// Dispatch settings
		SMSMaxAttempts: getEnvAsInt("SMS_MAX_ATTEMPTS", 3),
		SMSBackoffBase: getEnvAsDuration("SMS_BACKOFF_BASE", time.Second),
		LenientRollup:  getEnvAsBool("LENIENT_ROLLUP", false),

		SOSStoreProvider: getEnv("SOS_STORE_PROVIDER", "mongodb"),

		// Firebase
		FirebaseProjectID:   getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS_PATH", ""),

		// Twilio
		TwilioAccountSID:  getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:   getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioPhoneNumber: getEnv("TWILIO_PHONE_NUMBER", ""),

		// Email settings
		EmailProvider: getEnv("EMAIL_PROVIDER", "smtp"),
		SMTPHost:      getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:      getEnv("SMTP_PORT", "587"),
		SMTPUsername:  getEnv("SMTP_USERNAME", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:      getEnv("SMTP_FROM", "alerts@resqall.app"),

		// Object store
		MinIOEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinIOBucket:    getEnv("MINIO_BUCKET", "resqall-evidence"),
		MinIORegion:    getEnv("MINIO_REGION", ""),
		MinIOUseSSL:    getEnvAsBool("MINIO_USE_SSL", true),
	}
}

// SetupLogger configures logrus for the environment.
func SetupLogger(cfg *Config) {
	if cfg.Environment == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
		logrus.SetLevel(logrus.DebugLevel)
	}
}

func InitRedis(cfg *Config) *redis.Client {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		// Fallback to default config
		opt = &redis.Options{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
		}
	}

	return redis.NewClient(opt)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
