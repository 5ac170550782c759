package remote

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
)

// DropboxStore serves documents from a Dropbox folder. Both ledgers live
// there, maintained by the school administration.
type DropboxStore struct {
	client files.Client
}

func NewDropboxStore(accessToken string) *DropboxStore {
	cfg := dropbox.Config{Token: accessToken}
	return &DropboxStore{client: files.New(cfg)}
}

func (s *DropboxStore) GetMetadata(_ context.Context, path string) (string, error) {
	meta, err := s.client.GetMetadata(files.NewGetMetadataArg(path))
	if err != nil {
		return "", fmt.Errorf("dropbox metadata for %s: %w", path, err)
	}
	file, ok := meta.(*files.FileMetadata)
	if !ok {
		return "", fmt.Errorf("dropbox path %s is not a file", path)
	}
	return file.Rev, nil
}

func (s *DropboxStore) Download(_ context.Context, path string) ([]byte, string, time.Time, error) {
	meta, content, err := s.client.Download(files.NewDownloadArg(path))
	if err != nil {
		return nil, "", time.Time{}, fmt.Errorf("dropbox download %s: %w", path, err)
	}
	defer content.Close()

	data, err := io.ReadAll(content)
	if err != nil {
		return nil, "", time.Time{}, fmt.Errorf("dropbox read %s: %w", path, err)
	}
	return data, meta.Rev, meta.ServerModified, nil
}
