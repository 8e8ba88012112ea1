package storage

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var Client *minio.Client
var BucketName string

func Init() error {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "minio:9000"
	}

	accessKey := os.Getenv("MINIO_ACCESS_KEY")
	if accessKey == "" {
		accessKey = "invoice-backend"
	}

	secretKey := os.Getenv("MINIO_SECRET_KEY")
	if secretKey == "" {
		return fmt.Errorf("MINIO_SECRET_KEY not set")
	}

	BucketName = os.Getenv("MINIO_BUCKET")
	if BucketName == "" {
		BucketName = "invoices"
	}

	useSSL := os.Getenv("MINIO_USE_SSL") == "true"

	var err error
	Client, err = minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to create MinIO client: %w", err)
	}

	// Verify bucket exists
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := Client.BucketExists(ctx, BucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", BucketName)
	}

	return nil
}

// UploadRawText archives the raw invoice text under a date-based path.
// Path format: raw/YYYY/MM/{filename}
func UploadRawText(ctx context.Context, filename string, text string) (string, error) {
	now := time.Now()
	objectName := fmt.Sprintf("raw/%d/%02d/%s",
		now.Year(),
		now.Month(),
		filename,
	)

	reader := strings.NewReader(text)
	_, err := Client.PutObject(ctx, BucketName, objectName, reader, int64(len(text)), minio.PutObjectOptions{
		ContentType: "text/plain; charset=utf-8",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload raw text: %w", err)
	}

	// Return the full path for storage in DB
	return fmt.Sprintf("%s/%s", BucketName, objectName), nil
}

// GetPresignedURL generates a presigned URL for viewing an archived text
func GetPresignedURL(ctx context.Context, objectPath string) (string, error) {
	// Remove bucket prefix if present
	objectName := objectPath
	if len(objectPath) > len(BucketName)+1 && objectPath[:len(BucketName)+1] == BucketName+"/" {
		objectName = objectPath[len(BucketName)+1:]
	}

	url, err := Client.PresignedGetObject(ctx, BucketName, objectName, 24*time.Hour, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return url.String(), nil
}

// DeleteArchive removes an archived text from storage
func DeleteArchive(ctx context.Context, objectPath string) error {
	objectName := objectPath
	if len(objectPath) > len(BucketName)+1 && objectPath[:len(BucketName)+1] == BucketName+"/" {
		objectName = objectPath[len(BucketName)+1:]
	}

	return Client.RemoveObject(ctx, BucketName, objectName, minio.RemoveObjectOptions{})
}
