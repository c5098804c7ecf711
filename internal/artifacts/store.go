// Package artifacts persists run reports and failure screenshots to S3-compatible
// object storage. Every object of a run lives under runs/<run_id>/.
package artifacts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/kuitang/labtests-e2e/internal/obs"
	"github.com/kuitang/labtests-e2e/internal/reconcile"
)

// ErrNotFound is returned when a requested object does not exist.
var ErrNotFound = errors.New("artifacts: object not found")

const (
	runsPrefix     = "runs/"
	reportFile     = "report.json"
	screenshotsDir = "screenshots"
)

// Report is the persisted outcome of one suite run.
type Report struct {
	RunID       string            `json:"runId"`
	StartedAt   time.Time         `json:"startedAt"`
	FinishedAt  time.Time         `json:"finishedAt"`
	BaseURL     string            `json:"baseUrl"`
	Passed      bool              `json:"passed"`
	Error       string            `json:"error,omitempty"`
	Result      *reconcile.Result `json:"result,omitempty"`
	Screenshots []string          `json:"screenshots,omitempty"`
}

// Config holds the settings for an S3-backed Store.
type Config struct {
	// Endpoint overrides the S3 endpoint (Tigris, MinIO). Empty means AWS.
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	// PublicURL is the base URL objects are reachable at, used in notifications.
	PublicURL string
	// UsePathStyle is needed by most S3-compatible servers, including gofakes3.
	UsePathStyle bool
}

// Store writes and reads run artifacts.
type Store struct {
	s3        *s3.Client
	bucket    string
	publicURL string
}

// New builds a Store from cfg using the default AWS credential chain unless static
// keys are given.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("artifacts: bucket is required")
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	sdkConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("artifacts: load AWS config: %w", err)
	}
	client := s3.NewFromConfig(sdkConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewFromS3Client(client, cfg.Bucket, cfg.PublicURL), nil
}

// NewFromS3Client wraps an existing client.
func NewFromS3Client(client *s3.Client, bucket, publicURL string) *Store {
	return &Store{s3: client, bucket: bucket, publicURL: strings.TrimSuffix(publicURL, "/")}
}

// Bucket returns the configured bucket name.
func (s *Store) Bucket() string { return s.bucket }

// ReportKey is the object key of a run's report.
func ReportKey(runID string) string {
	return runsPrefix + runID + "/" + reportFile
}

// ScreenshotKey is the object key of a named screenshot in a run.
func ScreenshotKey(runID, name string) string {
	return runsPrefix + runID + "/" + screenshotsDir + "/" + sanitizeName(name) + ".png"
}

func sanitizeName(name string) string {
	name = strings.ToLower(strings.TrimSuffix(path.Base(name), ".png"))
	var b strings.Builder
	dash := false
	for _, r := range name {
		ok := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_'
		if ok {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "screenshot"
	}
	return out
}

// PutReport stores the report as JSON and returns its key.
func (s *Store) PutReport(ctx context.Context, report *Report) (string, error) {
	if report == nil || report.RunID == "" {
		return "", errors.New("artifacts: report needs a run id")
	}
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("artifacts: encode report: %w", err)
	}
	key := ReportKey(report.RunID)
	if err := s.put(ctx, key, body, "application/json"); err != nil {
		return "", err
	}
	obs.From(ctx).Info("artifact_stored", "pkg", "artifacts", "key", key, "bytes", len(body))
	return key, nil
}

// PutScreenshot stores a PNG screenshot and returns its key.
func (s *Store) PutScreenshot(ctx context.Context, runID, name string, png []byte) (string, error) {
	if runID == "" {
		return "", errors.New("artifacts: screenshot needs a run id")
	}
	key := ScreenshotKey(runID, name)
	if err := s.put(ctx, key, png, "image/png"); err != nil {
		return "", err
	}
	obs.From(ctx).Info("artifact_stored", "pkg", "artifacts", "key", key, "bytes", len(png))
	return key, nil
}

// GetReport loads a run's report. It returns ErrNotFound when the run has none.
func (s *Store) GetReport(ctx context.Context, runID string) (*Report, error) {
	body, err := s.get(ctx, ReportKey(runID))
	if err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("artifacts: decode report %s: %w", runID, err)
	}
	return &r, nil
}

// GetObject returns the raw bytes under key.
func (s *Store) GetObject(ctx context.Context, key string) ([]byte, error) {
	return s.get(ctx, key)
}

// RunObjects lists every key stored for a run.
func (s *Store) RunObjects(ctx context.Context, runID string) ([]string, error) {
	prefix := runsPrefix + runID + "/"
	var keys []string
	p := s3.NewListObjectsV2Paginator(s.s3, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("artifacts: list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// DeleteRun removes every object stored for a run.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	keys, err := s.RunObjects(ctx, runID)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if _, err := s.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		}); err != nil {
			return fmt.Errorf("artifacts: delete %q: %w", key, err)
		}
	}
	return nil
}

// URL returns the public URL of key, or the key itself when no public URL is set.
func (s *Store) URL(key string) string {
	key = strings.TrimPrefix(key, "/")
	if s.publicURL == "" {
		return key
	}
	return s.publicURL + "/" + key
}

func (s *Store) put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("artifacts: put %q: %w", key, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		var nf *types.NotFound
		if errors.As(err, &nsk) || errors.As(err, &nf) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("artifacts: get %q: %w", key, err)
	}
	defer out.Body.Close()
	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("artifacts: read %q: %w", key, err)
	}
	return body, nil
}
