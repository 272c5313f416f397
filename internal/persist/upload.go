package persist

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/loopcorder/loopcorder/internal/util"
)

const (
	uploadQueueSize   = 16
	uploadTimeout     = 5 * time.Minute
	uploadMaxAttempts = 3

	uploadBackoffInitial = 2 * time.Second
	uploadBackoffMax     = 30 * time.Second

	testConnectionTimeout = 30 * time.Second
)

// S3Config holds the upload destination. Endpoint may point at any
// S3-compatible store; when set, path-style addressing is used.
type S3Config struct {
	Endpoint        string `json:"endpoint"`
	Bucket          string `json:"bucket"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	Prefix          string `json:"prefix"`
}

// IsConfigured reports whether the required S3 fields are set.
func (c *S3Config) IsConfigured() bool {
	return util.IsConfigured(c.Bucket, c.AccessKeyID, c.SecretAccessKey)
}

// UploadCallback reports the outcome of one upload attempt chain.
type UploadCallback func(localPath, key string, err error)

// Uploader pushes finished recordings to S3 from a background worker,
// so a slow network never blocks the next session. Failed uploads are
// retried with exponential backoff before being reported.
type Uploader struct {
	cfg      S3Config
	client   *s3.Client
	queue    chan string
	done     chan struct{}
	callback UploadCallback
}

// NewUploader creates an uploader and starts its worker. Returns nil
// when S3 is not configured; callers treat a nil uploader as disabled.
func NewUploader(cfg S3Config, callback UploadCallback) *Uploader {
	if !cfg.IsConfigured() {
		return nil
	}

	u := &Uploader{
		cfg:      cfg,
		client:   newS3Client(&cfg),
		queue:    make(chan string, uploadQueueSize),
		done:     make(chan struct{}),
		callback: callback,
	}
	go u.worker()
	return u
}

// Enqueue schedules a file for upload. Returns false when the queue is
// full; the file stays on disk either way.
func (u *Uploader) Enqueue(path string) bool {
	select {
	case u.queue <- path:
		return true
	default:
		slog.Warn("Upload queue full, skipping", "file", path)
		return false
	}
}

// Bucket returns the configured bucket name.
func (u *Uploader) Bucket() string {
	return u.cfg.Bucket
}

// Close stops the worker after draining queued uploads.
func (u *Uploader) Close() {
	close(u.queue)
	<-u.done
}

func (u *Uploader) worker() {
	defer close(u.done)
	for path := range u.queue {
		key, err := u.uploadWithRetry(path)
		if u.callback != nil {
			u.callback(path, key, err)
		}
	}
}

func (u *Uploader) uploadWithRetry(path string) (string, error) {
	key := u.cfg.Prefix + filepath.Base(path)
	backoff := util.NewBackoff(uploadBackoffInitial, uploadBackoffMax)

	var err error
	for attempt := 1; attempt <= uploadMaxAttempts; attempt++ {
		if err = u.uploadFile(path, key); err == nil {
			slog.Info("Recording uploaded", "file", path, "bucket", u.cfg.Bucket, "key", key)
			return key, nil
		}
		slog.Warn("Upload attempt failed",
			"file", path, "attempt", attempt, "error", err)
		if attempt < uploadMaxAttempts {
			time.Sleep(backoff.Next())
		}
	}
	return key, util.WrapError("upload recording", err)
}

func (u *Uploader) uploadFile(path, key string) error {
	f, err := os.Open(path)
	if err != nil {
		return util.WrapError("open recording", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return util.WrapError("stat recording", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.cfg.Bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
	})
	return err
}

// TestS3Connection verifies bucket access by writing and deleting a
// marker object.
func TestS3Connection(cfg *S3Config) error {
	if !cfg.IsConfigured() {
		return fmt.Errorf("S3 is not configured")
	}

	client := newS3Client(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), testConnectionTimeout)
	defer cancel()

	testKey := fmt.Sprintf("%stest-connection-%d.txt", cfg.Prefix, time.Now().UnixNano())
	content := []byte("loopcorder connection test")

	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(cfg.Bucket),
		Key:           aws.String(testKey),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
	})
	if err != nil {
		return util.WrapError("upload test file", err)
	}

	if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(cfg.Bucket),
		Key:    aws.String(testKey),
	}); err != nil {
		slog.Warn("Failed to delete test file", "key", testKey, "error", err)
	}
	return nil
}

func newS3Client(cfg *S3Config) *s3.Client {
	creds := credentials.NewStaticCredentialsProvider(
		cfg.AccessKeyID, cfg.SecretAccessKey, "")

	options := []func(*s3.Options){
		func(o *s3.Options) {
			o.Credentials = creds
			o.Region = "auto"
		},
	}
	if cfg.Endpoint != "" {
		options = append(options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}
	return s3.New(s3.Options{}, options...)
}
