package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"resqall/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// UploadService turns local evidence files into durable references. Absent
// bundle fields are skipped; a failed upload degrades its field to absent
// and never aborts the other one. Retries are deliberately not applied
// here — a missing URL surfaces identically to "field unavailable", which
// the message formatter already handles, and channel-level retry belongs to
// the dispatcher.
type UploadService struct {
	store ObjectStore
}

func NewUploadService(store ObjectStore) *UploadService {
	if store == nil {
		store = NewMockObjectStore()
	}
	return &UploadService{
		store: store,
	}
}

// Upload uploads whatever media the bundle holds. Both uploads are
// independent; errors are logged and recorded as absent URLs.
func (us *UploadService) Upload(ctx context.Context, bundle models.EvidenceBundle) models.UploadedEvidence {
	var uploaded models.UploadedEvidence

	if bundle.Photo != nil {
		url, err := us.putFile(ctx, bundle.Photo.LocalPath, bundle.Photo.MimeType, "photo")
		if err != nil {
			logrus.Errorf("Photo upload failed: %v", err)
		} else {
			uploaded.PhotoURL = url
		}
	}

	if bundle.Audio != nil {
		url, err := us.putFile(ctx, bundle.Audio.LocalPath, bundle.Audio.MimeType, "audio")
		if err != nil {
			logrus.Errorf("Audio upload failed: %v", err)
		} else {
			uploaded.AudioURL = url
		}
	}

	return uploaded
}

func (us *UploadService) putFile(ctx context.Context, localPath, contentType, kind string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s file: %w", kind, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat %s file: %w", kind, err)
	}

	key := fmt.Sprintf("sos/%s/%s_%s%s", kind, kind, uuid.New().String(), filepath.Ext(localPath))

	url, err := us.store.Put(ctx, key, contentType, file, info.Size())
	if err != nil {
		return "", err
	}

	logrus.Infof("Uploaded %s evidence to %s", kind, key)
	return url, nil
}
