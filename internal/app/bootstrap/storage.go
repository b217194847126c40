// internal/app/bootstrap/storage.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/learnportal/internal/app/system/filestore"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// buildStorage returns the backend named by storage_type.
func buildStorage(ctx context.Context, appCfg AppConfig, logger *zap.Logger) (filestore.Backend, error) {
	var (
		b   filestore.Backend
		err error
	)
	switch appCfg.StorageType {
	case filestore.BackendLocal:
		b, err = filestore.NewLocal(afero.NewOsFs(), appCfg.StorageLocalPath)
	case filestore.BackendDrive:
		b, err = filestore.NewDrive(ctx, appCfg.DriveCredentialsFile, appCfg.DriveFolderID)
	case filestore.BackendS3:
		b, err = filestore.NewS3(ctx, filestore.S3Config{
			Region:       appCfg.StorageS3Region,
			Bucket:       appCfg.StorageS3Bucket,
			Prefix:       appCfg.StorageS3Prefix,
			Endpoint:     appCfg.StorageS3Endpoint,
			AccessKey:    appCfg.StorageS3AccessKey,
			SecretKey:    appCfg.StorageS3SecretKey,
			UsePathStyle: appCfg.StorageS3Endpoint != "",
		})
	default:
		return nil, fmt.Errorf("unknown storage_type %q", appCfg.StorageType)
	}
	if err != nil {
		return nil, fmt.Errorf("storage %s: %w", appCfg.StorageType, err)
	}
	logger.Info("file storage ready", zap.String("backend", b.Name()))
	return b, nil
}
