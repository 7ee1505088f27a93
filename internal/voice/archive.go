package voice

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"time"

	"fixmate_backend/platform/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// PresignedURLTTL is how long an archived voice note link stays valid.
const PresignedURLTTL = 15 * time.Minute

// MinIOArchive keeps voice notes in an S3-compatible bucket so transcripts
// can be checked against the original audio.
type MinIOArchive struct {
	client *minio.Client
	bucket string
}

// NewMinIOArchive connects to MinIO. It fails when MinIO is not configured.
func NewMinIOArchive(cfg config.MinIOConfig) (*MinIOArchive, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	bucket := cfg.GetMinioBucketVoiceNotes()
	if bucket == "" {
		bucket = "voice-notes"
	}
	return &MinIOArchive{client: client, bucket: bucket}, nil
}

// EnsureBucketExists creates the bucket if it doesn't exist.
func (a *MinIOArchive) EnsureBucketExists(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", a.bucket, err)
	}
	return nil
}

// Store uploads audio under <yyyy>/<mm>/<dd>/<message>_<rand><ext> and
// returns the object key.
func (a *MinIOArchive) Store(ctx context.Context, note Note, audio []byte) (string, error) {
	key := objectKey(note, uuid.New().String()[:8])
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(audio), int64(len(audio)), minio.PutObjectOptions{
		ContentType: note.MimeType,
		UserMetadata: map[string]string{
			"message-id": note.MessageID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload voice note %s: %w", key, err)
	}
	return key, nil
}

// DownloadURL returns a short-lived link to an archived note.
func (a *MinIOArchive) DownloadURL(ctx context.Context, key string) (string, error) {
	u, err := a.client.PresignedGetObject(ctx, a.bucket, key, PresignedURLTTL, make(url.Values))
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned download URL: %w", err)
	}
	return u.String(), nil
}

func objectKey(note Note, suffix string) string {
	name := note.MessageID
	if name == "" {
		name = "note"
	}
	folder := note.ReceivedAt.UTC().Format("2006/01/02")
	return path.Join(folder, fmt.Sprintf("%s_%s%s", sanitizeKey(name), suffix, extensionFor(note.MimeType)))
}

func sanitizeKey(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '-')
		}
	}
	return string(out)
}
