package s3_client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/epigrid/epigridgo/internal/ctxlog"
	"github.com/epigrid/epigridgo/internal/s3store"
)

// DownloadInput defines the arguments for the 's3_download' runner.
type DownloadInput struct {
	Folder  string `epi:"folder"`
	DestDir string `epi:"dest_dir"`
}

// DownloadDeps declares the resources the runner needs injected.
type DownloadDeps struct {
	Store *s3store.Store `epi:"store"`
}

// DownloadOutput reports which partition was found and the files written.
type DownloadOutput struct {
	Date  string   `cty:"date"`
	Files []string `cty:"files"`
}

// onRunS3Download finds the most recent date partition under a folder and
// writes every object in it to the destination directory, flattening the key
// path into the file name.
func onRunS3Download(ctx context.Context, deps *DownloadDeps, input *DownloadInput) (*DownloadOutput, error) {
	logger := ctxlog.FromContext(ctx)

	keys, date, err := deps.Store.LatestPartition(ctx, input.Folder)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(input.DestDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create destination directory %q: %w", input.DestDir, err)
	}

	files := make([]string, 0, len(keys))
	for _, key := range keys {
		body, err := deps.Store.Get(ctx, key)
		if err != nil {
			return nil, err
		}

		localPath := filepath.Join(input.DestDir, s3store.FlattenKey(key))
		if err := os.WriteFile(localPath, body, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %q: %w", localPath, err)
		}
		files = append(files, localPath)
	}

	logger.Info("Downloaded latest partition.", "folder", input.Folder, "date", date.Format("2006-01-02"), "files", len(files))
	return &DownloadOutput{Date: date.Format("2006-01-02"), Files: files}, nil
}
