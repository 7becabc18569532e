package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	interrors "github.com/dtbase/dt-deployer/internal/errors"
)

// BuildReport is the JSON document describing one pipeline run, written to
// the state bucket after the run finishes.
type BuildReport struct {
	Image      string `json:"image"`
	Env        string `json:"env"`
	SK         string `json:"sk"`
	Branch     string `json:"branch,omitempty"`
	Tag        string `json:"tag"`
	Revision   string `json:"revision,omitempty"`
	Reference  string `json:"reference,omitempty"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	CreatedAt  int64  `json:"createdAt"`
	FinishedAt int64  `json:"finishedAt,omitempty"`
}

// S3API is the subset of the S3 client the report store uses.
// This interface enables mocking the S3 client in tests.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ReportStore persists build reports under {image}/{env}/{sk}.json, with a
// {image}/{env}/latest.json pointer updated on every put.
type ReportStore struct {
	client S3API
	bucket string
	logger zerolog.Logger
}

// NewReportStore creates a report store writing to the given bucket
func NewReportStore(client S3API, bucket string, logger zerolog.Logger) *ReportStore {
	return &ReportStore{
		client: client,
		bucket: bucket,
		logger: logger.With().Str("service", "report_store").Logger(),
	}
}

// Put uploads the report and refreshes the latest pointer for its
// {image, env} pair.
func (r *ReportStore) Put(ctx context.Context, report BuildReport) error {
	if report.Image == "" || report.Env == "" || report.SK == "" {
		return fmt.Errorf("report requires image, env, and sk")
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal build report: %w", err)
	}

	keys := []string{
		reportKey(report.Image, report.Env, report.SK),
		latestReportKey(report.Image, report.Env),
	}
	for _, key := range keys {
		_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(r.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("application/json"),
		})
		if err != nil {
			return fmt.Errorf("failed to upload build report %s: %w", key, err)
		}
	}

	r.logger.Info().
		Str("s3_bucket", r.bucket).
		Str("s3_key", keys[0]).
		Str("status", report.Status).
		Msg("uploaded build report")

	return nil
}

// Get fetches one report by its run sort key.
func (r *ReportStore) Get(ctx context.Context, image, env, sk string) (*BuildReport, error) {
	return r.fetch(ctx, reportKey(image, env, sk))
}

// Latest fetches the most recently written report for an {image, env} pair.
func (r *ReportStore) Latest(ctx context.Context, image, env string) (*BuildReport, error) {
	return r.fetch(ctx, latestReportKey(image, env))
}

func (r *ReportStore) fetch(ctx context.Context, key string) (*BuildReport, error) {
	output, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%s: %w", key, interrors.ErrReportNotFound)
		}
		return nil, fmt.Errorf("failed to download build report %s: %w", key, err)
	}
	defer output.Body.Close()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read build report %s: %w", key, err)
	}

	var report BuildReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse build report %s: %w", key, err)
	}

	return &report, nil
}

func reportKey(image, env, sk string) string {
	return fmt.Sprintf("%s/%s/%s.json", image, env, sk)
}

func latestReportKey(image, env string) string {
	return fmt.Sprintf("%s/%s/latest.json", image, env)
}

func isNoSuchKey(err error) bool {
	var notFound *s3types.NoSuchKey
	if errors.As(err, &notFound) {
		return true
	}
	// Fallback for wrapped errors from custom endpoints
	return strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "NotFound")
}
