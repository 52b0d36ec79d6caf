package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/satis-shop/satis-api/config"
)

// CallbackRecord is the archived form of a verified provider callback
type CallbackRecord struct {
	Provider    string            `json:"provider"`
	OrderID     uint              `json:"order_id"`
	ProviderRef string            `json:"provider_ref"`
	Outcome     string            `json:"outcome"`
	Payload     map[string]string `json:"payload"`
	ReceivedAt  time.Time         `json:"received_at"`
}

// CallbackArchive defines the interface for storing verified callbacks
type CallbackArchive interface {
	Store(ctx context.Context, record CallbackRecord) (string, error)
}

// S3CallbackArchive writes callback records as JSON objects to an S3 bucket
type S3CallbackArchive struct {
	client *s3.Client
	bucket string
}

// NewCallbackArchive creates the S3 archive from cfg. Without a bucket it returns nil
// and callbacks are not archived.
func NewCallbackArchive(ctx context.Context, cfg *config.Config) (CallbackArchive, error) {
	if cfg.AWSS3Bucket == "" {
		return nil, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3CallbackArchive{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.AWSS3Bucket,
	}, nil
}

// CallbackKey returns the object key for record: callbacks/{provider}/{yyyy-mm-dd}/{order}-{uuid}.json
func CallbackKey(record CallbackRecord) string {
	return fmt.Sprintf("callbacks/%s/%s/%d-%s.json",
		record.Provider,
		record.ReceivedAt.UTC().Format("2006-01-02"),
		record.OrderID,
		uuid.NewString(),
	)
}

// Store uploads record and returns its S3 key
func (a *S3CallbackArchive) Store(ctx context.Context, record CallbackRecord) (string, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to encode callback record: %w", err)
	}

	key := CallbackKey(record)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload callback to S3: %w", err)
	}
	return key, nil
}

// MockCallbackArchive keeps records in memory for testing
type MockCallbackArchive struct {
	mu      sync.RWMutex
	records map[string]CallbackRecord
	Err     error // returned from Store when set
}

// NewMockCallbackArchive creates a new mock archive
func NewMockCallbackArchive() *MockCallbackArchive {
	return &MockCallbackArchive{records: make(map[string]CallbackRecord)}
}

// Store records the callback under a generated key
func (m *MockCallbackArchive) Store(_ context.Context, record CallbackRecord) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	key := CallbackKey(record)
	m.mu.Lock()
	m.records[key] = record
	m.mu.Unlock()
	return key, nil
}

// Records returns all stored records (for testing assertions)
func (m *MockCallbackArchive) Records() []CallbackRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]CallbackRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	return out
}

// Keys returns all stored object keys
func (m *MockCallbackArchive) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.records))
	for k := range m.records {
		keys = append(keys, k)
	}
	return keys
}
