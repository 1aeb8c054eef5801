package s3_client

import (
	"context"

	"github.com/epigrid/epigridgo/internal/s3store"
)

// AssetInput defines the arguments for creating an s3_client resource.
// Credentials and the bucket always come from the environment, so a pipeline
// file never carries secrets.
type AssetInput struct {
	Region       string `epi:"region"`
	Endpoint     string `epi:"endpoint"`
	UsePathStyle bool   `epi:"use_path_style"`
}

// createS3Client is the 'create' handler for the asset. It reads credentials
// from the environment and returns a live *s3store.Store shared across steps.
func createS3Client(ctx context.Context, input *AssetInput) (*s3store.Store, error) {
	cfg, err := s3store.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	if input.Region != "" {
		cfg.Region = input.Region
	}
	cfg.Endpoint = input.Endpoint
	cfg.UsePathStyle = input.UsePathStyle

	return s3store.New(ctx, cfg)
}

// destroyS3Client is the 'destroy' handler. The store holds no connections
// of its own, so there is nothing to release.
func destroyS3Client(store *s3store.Store) error {
	return nil
}
