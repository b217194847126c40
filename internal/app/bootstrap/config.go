// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/learnportal/internal/app/system/auth"
	"github.com/dalemusser/learnportal/internal/app/system/filestore"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for LearnPortal.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: LEARNPORTAL_MONGO_URI, LEARNPORTAL_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "learnportal", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},

	// Tokens and links
	{Name: "jwt_secret", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Bearer token signing secret (must be strong in production)"},
	{Name: "jwt_ttl", Default: "24h", Desc: "Bearer token lifetime"},
	{Name: "download_key", Default: "dev-only-download-key-0123456789ABCDEF", Desc: "Signing key for file download links"},
	{Name: "download_ttl", Default: "10m", Desc: "Download link lifetime"},

	// File storage configuration
	{Name: "storage_type", Default: "local", Desc: "Storage backend: 'local', 'drive' or 's3'"},
	{Name: "storage_local_path", Default: "./uploads", Desc: "Local storage root for uploaded files"},
	{Name: "storage_max_upload_mb", Default: 20, Desc: "Maximum size of one uploaded file in MB"},
	{Name: "drive_credentials_file", Default: "", Desc: "Google service-account JSON key file"},
	{Name: "drive_folder_id", Default: "", Desc: "Google Drive folder for uploads"},
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "uploads/", Desc: "S3 key prefix"},
	{Name: "storage_s3_endpoint", Default: "", Desc: "Custom S3 endpoint (MinIO and other compatible servers)"},
	{Name: "storage_s3_access_key", Default: "", Desc: "Static S3 access key (blank uses the default AWS chain)"},
	{Name: "storage_s3_secret_key", Default: "", Desc: "Static S3 secret key"},

	// HTTP
	{Name: "cors_allowed_origins", Default: "*", Desc: "Comma-separated CORS origins"},
	{Name: "login_rate_per_minute", Default: 10, Desc: "Login attempts allowed per client IP per minute"},

	// Bootstrap admin
	{Name: "bootstrap_admin_email", Default: "", Desc: "Email of the admin to create or promote on startup"},
	{Name: "bootstrap_admin_password", Default: "", Desc: "Password used when the bootstrap admin must be created"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges .env files, config files,
// LEARNPORTAL_* environment variables and flags with precedence
// flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "LEARNPORTAL", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		JWTSecret:   appValues.String("jwt_secret"),
		JWTTTL:      appValues.Duration("jwt_ttl", 24*time.Hour),
		DownloadKey: appValues.String("download_key"),
		DownloadTTL: appValues.Duration("download_ttl", 10*time.Minute),

		// File storage
		StorageType:          strings.ToLower(strings.TrimSpace(appValues.String("storage_type"))),
		StorageLocalPath:     appValues.String("storage_local_path"),
		StorageMaxUploadMB:   appValues.Int("storage_max_upload_mb"),
		DriveCredentialsFile: appValues.String("drive_credentials_file"),
		DriveFolderID:        appValues.String("drive_folder_id"),
		StorageS3Region:      appValues.String("storage_s3_region"),
		StorageS3Bucket:      appValues.String("storage_s3_bucket"),
		StorageS3Prefix:      appValues.String("storage_s3_prefix"),
		StorageS3Endpoint:    appValues.String("storage_s3_endpoint"),
		StorageS3AccessKey:   appValues.String("storage_s3_access_key"),
		StorageS3SecretKey:   appValues.String("storage_s3_secret_key"),

		// HTTP
		CORSAllowedOrigins: splitList(appValues.String("cors_allowed_origins")),
		LoginRatePerMinute: appValues.Int("login_rate_per_minute"),

		// Bootstrap admin
		BootstrapAdminEmail:    appValues.String("bootstrap_admin_email"),
		BootstrapAdminPassword: appValues.String("bootstrap_admin_password"),
	}
	return coreCfg, appCfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// LearnPortal checks the MongoDB URI format, the signing secrets and the
// storage backend settings before attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if len(appCfg.JWTSecret) < auth.MinSecretLen {
		return fmt.Errorf("jwt_secret must be at least %d characters", auth.MinSecretLen)
	}
	if len(appCfg.DownloadKey) < 32 {
		return fmt.Errorf("download_key must be at least 32 characters")
	}
	if appCfg.StorageMaxUploadMB <= 0 {
		return fmt.Errorf("storage_max_upload_mb must be positive")
	}

	switch appCfg.StorageType {
	case filestore.BackendLocal:
		if appCfg.StorageLocalPath == "" {
			return fmt.Errorf("storage_local_path is required for local storage")
		}
	case filestore.BackendDrive:
		if appCfg.DriveCredentialsFile == "" {
			return fmt.Errorf("drive_credentials_file is required for drive storage")
		}
	case filestore.BackendS3:
		if appCfg.StorageS3Bucket == "" {
			return fmt.Errorf("storage_s3_bucket is required for s3 storage")
		}
	default:
		return fmt.Errorf("unknown storage_type %q (want local, drive or s3)", appCfg.StorageType)
	}

	if coreCfg != nil && coreCfg.Env == "prod" && strings.HasPrefix(appCfg.JWTSecret, "dev-only") {
		return fmt.Errorf("jwt_secret must be set in production")
	}
	return nil
}
