package config

import (
	"context"

	"resqall/database"
	"resqall/interfaces"
	"resqall/repositories"
	"resqall/services"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// PlatformCapabilities bundles the device-side surfaces the pipeline needs.
// The embedding application supplies implementations for the platform it
// runs on; any nil field degrades the corresponding capture.
type PlatformCapabilities struct {
	Permissions interfaces.PermissionChecker
	Location    interfaces.LocationProvider
	Device      interfaces.DeviceInfoProvider
	Media       interfaces.MediaLibrary
}

// InitEmailService initializes the email channel based on configuration.
func (c *Config) InitEmailService() services.EmailService {
	switch c.EmailProvider {
	case "smtp":
		if c.SMTPUsername == "" || c.SMTPPassword == "" {
			logrus.Warn("SMTP credentials not configured, using mock email service")
			return services.NewMockEmailService()
		}
		return services.NewSMTPEmailService(
			c.SMTPHost,
			c.SMTPPort,
			c.SMTPUsername,
			c.SMTPPassword,
			c.SMTPFrom,
		)
	case "mock":
		return services.NewMockEmailService()
	default:
		logrus.Warn("Unknown email provider, using mock email service")
		return services.NewMockEmailService()
	}
}

// InitSMSService initializes the SMS channel based on configuration.
func (c *Config) InitSMSService() services.SMSService {
	if c.TwilioAccountSID == "" || c.TwilioAuthToken == "" {
		logrus.Warn("Twilio credentials not configured, using mock SMS service")
		return services.NewMockSMSService()
	}
	return services.NewTwilioSMSService(c.TwilioAccountSID, c.TwilioAuthToken, c.TwilioPhoneNumber)
}

// InitObjectStore initializes the evidence object store.
func (c *Config) InitObjectStore() services.ObjectStore {
	if c.MinIOEndpoint == "" {
		logrus.Warn("Object store not configured, using mock object store")
		return services.NewMockObjectStore()
	}

	store, err := services.NewMinIOStore(services.MinIOConfig{
		Endpoint:        c.MinIOEndpoint,
		AccessKeyID:     c.MinIOAccessKey,
		SecretAccessKey: c.MinIOSecretKey,
		UseSSL:          c.MinIOUseSSL,
		Bucket:          c.MinIOBucket,
		Region:          c.MinIORegion,
	})
	if err != nil {
		logrus.Errorf("Failed to initialize object store, using mock: %v", err)
		return services.NewMockObjectStore()
	}
	return store
}

// InitSOSStore initializes the persistence backend for SOS records.
func (c *Config) InitSOSStore(ctx context.Context) interfaces.SOSStore {
	switch c.SOSStoreProvider {
	case "mongodb":
		db, err := database.Connect(c.DatabaseURL)
		if err != nil {
			logrus.Errorf("Failed to connect to MongoDB, using mock SOS store: %v", err)
			return repositories.NewMockSOSRepository()
		}
		return repositories.NewSOSRepository(db)
	case "firestore":
		repo, err := repositories.NewFirestoreSOSRepository(ctx, c.FirebaseProjectID, c.FirebaseCredentials)
		if err != nil {
			logrus.Errorf("Failed to initialize Firestore, using mock SOS store: %v", err)
			return repositories.NewMockSOSRepository()
		}
		return repo
	case "mock":
		return repositories.NewMockSOSRepository()
	default:
		logrus.Warnf("Unknown SOS store provider %q, using mock", c.SOSStoreProvider)
		return repositories.NewMockSOSRepository()
	}
}

// InitFixCache initializes the last-known-location cache.
func (c *Config) InitFixCache(client *redis.Client) services.FixCache {
	if client == nil {
		return services.NoopFixCache{}
	}
	if err := client.Ping(context.Background()).Err(); err != nil {
		logrus.Warnf("Redis unavailable, location cache disabled: %v", err)
		return services.NoopFixCache{}
	}
	return services.NewRedisFixCache(client, 0)
}

// BuildPipeline wires the full SOS pipeline from configuration and the
// platform capabilities supplied by the embedding application.
func BuildPipeline(cfg *Config, platform PlatformCapabilities) *services.PipelineService {
	ctx := context.Background()

	redisClient := InitRedis(cfg)
	fixCache := cfg.InitFixCache(redisClient)

	locationService := services.NewLocationService(platform.Location, fixCache, cfg.LocationTimeout)
	cameraService := services.NewCameraService(platform.Media, cfg.EvidenceDir, cfg.JPEGQuality, cfg.PhotoMaxEdge)
	audioService := services.NewAudioService(cfg.AudioDuration)
	deviceService := services.NewDeviceService(platform.Device)

	gate := services.NewPermissionGate(platform.Permissions)
	collector := services.NewEvidenceCollector(locationService, cameraService, audioService, deviceService)
	uploader := services.NewUploadService(cfg.InitObjectStore())

	dispatcher := services.NewAlertDispatcher(
		cfg.InitEmailService(),
		cfg.InitSMSService(),
		cfg.InitSOSStore(ctx),
		services.DispatcherConfig{
			SMSMaxAttempts: cfg.SMSMaxAttempts,
			SMSBackoffBase: cfg.SMSBackoffBase,
			LenientRollup:  cfg.LenientRollup,
		},
	)

	return services.NewPipelineService(gate, collector, uploader, dispatcher)
}
