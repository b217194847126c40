// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, logging, body limits); everything
// LearnPortal itself needs lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Bearer tokens
	JWTSecret string        // HS256 signing secret (at least 32 characters)
	JWTTTL    time.Duration // token lifetime

	// Signed download links
	DownloadKey string // securecookie hash key (at least 32 bytes)
	DownloadTTL time.Duration

	// File storage configuration
	StorageType        string // "local", "drive" or "s3"
	StorageLocalPath   string // root directory for the local backend
	StorageMaxUploadMB int

	// Google Drive (only used if StorageType is "drive")
	DriveCredentialsFile string // service-account JSON key
	DriveFolderID        string

	// S3 (only used if StorageType is "s3")
	StorageS3Region    string
	StorageS3Bucket    string
	StorageS3Prefix    string
	StorageS3Endpoint  string // S3-compatible servers such as MinIO
	StorageS3AccessKey string
	StorageS3SecretKey string

	// HTTP
	CORSAllowedOrigins []string
	LoginRatePerMinute int

	// Bootstrap admin, created or promoted on startup when set
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}
