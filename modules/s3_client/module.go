// Package s3_client provides the object storage asset backing the pipeline's
// publish and download steps, plus a runner that mirrors the most recent
// date partition of a folder to local disk.
package s3_client

import (
	"reflect"

	"github.com/epigrid/epigridgo/internal/registry"
	"github.com/epigrid/epigridgo/internal/s3store"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the asset handlers, the asset interface, and the
// s3_download runner with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAssetHandler("CreateS3Client", &registry.RegisteredAsset{
		NewInput: func() any { return new(AssetInput) },
		CreateFn: createS3Client,
	})
	r.RegisterAssetHandler("DestroyS3Client", &registry.RegisteredAsset{
		DestroyFn: destroyS3Client,
	})
	r.RegisterAssetInterface("s3_client", reflect.TypeOf((*s3store.Store)(nil)))

	r.RegisterRunner("OnRunS3Download", &registry.RegisteredRunner{
		NewInput:  func() any { return new(DownloadInput) },
		InputType: reflect.TypeOf(DownloadInput{}),
		NewDeps:   func() any { return new(DownloadDeps) },
		Fn:        onRunS3Download,
	})
}
