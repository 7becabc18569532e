package builddao

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/savaki/ddb/v2"
	"github.com/savaki/gox/slicex"
)

const latest = "latest"

// PK represents a DynamoDB partition key in format {image}/{env}
// Example: dtbase/dev
type PK string

// NewPK creates a new partition key from image and env
func NewPK(image, env string) PK {
	return PK(fmt.Sprintf("%s/%s", image, env))
}

// ParsePK parses a partition key into its image and env components
func ParsePK(pk PK) (image, env string, err error) {
	s := string(pk)
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid PK format: %s, expected {image}/{env}", s)
	}
	return parts[0], parts[1], nil
}

// String returns the string representation of the partition key
func (pk PK) String() string {
	return string(pk)
}

// ID represents a build ID in format {image}/{env}:{ksuid}
// Example: dtbase/dev:2HFj3kLmNoPqRsTuVwXy
type ID string

func (id ID) String() string {
	return string(id)
}

// ParseID parses a build ID into its partition key (pk) and sort key (sk) components
func ParseID(id ID) (pk PK, sk string, err error) {
	s := string(id)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid build ID format: %s, expected {image}/{env}:{ksuid}", s)
	}
	return PK(parts[0]), parts[1], nil
}

// NewID constructs an ID from partition key and sort key
func NewID(pk PK, sk string) ID {
	return ID(fmt.Sprintf("%s:%s", pk, sk))
}

// BuildStatus represents the current status of a pipeline run
type BuildStatus string

const (
	BuildStatusPending    BuildStatus = "PENDING"
	BuildStatusInProgress BuildStatus = "IN_PROGRESS"
	BuildStatusSuccess    BuildStatus = "SUCCESS"
	BuildStatusFailed     BuildStatus = "FAILED"
)

// Record represents a pipeline run record in DynamoDB
type Record struct {
	PK         PK          `ddb:"hash" dynamodbav:"pk"`  // {image}/{env} - DynamoDB partition key
	SK         string      `ddb:"range" dynamodbav:"sk"` // KSUID - DynamoDB sort key
	ID         ID          `dynamodbav:"id,omitempty"`   // ID is only used for latest entries
	Image      string      `dynamodbav:"image,omitempty"`
	Env        string      `dynamodbav:"env,omitempty"` // Environment label (main, dev, test-actions)
	Branch     string      `dynamodbav:"branch,omitempty"`
	Tag        string      `dynamodbav:"tag,omitempty"`      // Image tag, equal to the environment label
	Revision   string      `dynamodbav:"revision,omitempty"` // Git commit hash
	Status     BuildStatus `dynamodbav:"status,omitempty"`
	ErrorMsg   *string     `dynamodbav:"error_msg,omitempty,omitempty"`
	CreatedAt  int64       `dynamodbav:"created_at,omitempty"`            // Unix epoch timestamp of creation
	FinishedAt *int64      `dynamodbav:"finished_at,omitempty,omitempty"` // Unix epoch timestamp of completion
	UpdatedAt  int64       `dynamodbav:"updated_at,omitempty"`            // Unix epoch timestamp of last update
}

// GetID returns the full build ID in format: {image}/{env}:{ksuid}
func (r *Record) GetID() ID {
	if r.ID != "" {
		return r.ID
	}
	return NewID(r.PK, r.SK)
}

// CreateInput contains the fields needed to create a new run record
type CreateInput struct {
	Image    string // Image name
	Env      string // Environment label (main, dev, test-actions)
	SK       string // KSUID sort key
	Branch   string // Git branch
	Tag      string // Image tag
	Revision string // Git commit hash
}

// UpdateInput contains the fields that can be updated on a run record
type UpdateInput struct {
	PK       PK           // Partition key (image/env)
	SK       string       // Sort key (KSUID)
	Status   *BuildStatus // New status
	ErrorMsg *string      // Error message (optional)
}

// DAO provides data access operations for pipeline run records
type DAO struct {
	db    *ddb.DDB
	table *ddb.Table
}

// TableName derives the default run table name from environment
func TableName(env string) string {
	return fmt.Sprintf("%s-dt-deployer-runs", env)
}

// New creates a new DAO instance
func New(client *dynamodb.Client, tableName string) *DAO {
	db := ddb.New(client)
	table := db.MustTable(tableName, &Record{})
	return &DAO{
		db:    db,
		table: table,
	}
}

// Create creates a new run record with initial status PENDING
func (d *DAO) Create(ctx context.Context, input CreateInput) (Record, error) {
	pk := NewPK(input.Image, input.Env)
	now := time.Now().Unix()

	record := Record{
		PK:        pk,
		SK:        input.SK,
		Image:     input.Image,
		Env:       input.Env,
		Branch:    input.Branch,
		Tag:       input.Tag,
		Revision:  input.Revision,
		Status:    BuildStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := d.table.Put(&record).RunWithContext(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("failed to create run record: %w", err)
	}

	return record, nil
}

// Find retrieves a run record by ID
// Returns an error if not found or if there's a database error
func (d *DAO) Find(ctx context.Context, id ID) (Record, error) {
	pk, sk, err := ParseID(id)
	if err != nil {
		return Record{}, err
	}

	var record Record

	err = d.table.Get(pk.String()).
		Range(sk).
		ConsistentRead(true).
		ScanWithContext(ctx, &record)
	if err != nil {
		// Check if it's a "not found" error
		errStr := err.Error()
		if strings.Contains(errStr, "item not found") || strings.Contains(errStr, "ItemNotFound") {
			return Record{}, fmt.Errorf("run record not found: %s", id)
		}
		return Record{}, fmt.Errorf("failed to find run record: %w", err)
	}

	// If all fields are empty, item doesn't exist
	if record.PK == "" && record.SK == "" {
		return Record{}, fmt.Errorf("run record not found: %s", id)
	}

	return record, nil
}

// Delete removes a run record by ID
func (d *DAO) Delete(ctx context.Context, id ID) error {
	pk, sk, err := ParseID(id)
	if err != nil {
		return err
	}

	err = d.table.Delete(pk).
		Range(sk).
		RunWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete run record: %w", err)
	}

	return nil
}

// UpdateStatus updates the status of a run record and creates/updates a "latest" magic record
// The latest record has pk=latest/{env} and sk={original pk} to enable efficient queries for latest runs
func (d *DAO) UpdateStatus(ctx context.Context, input UpdateInput) error {
	if input.Status == nil {
		return fmt.Errorf("status is required")
	}

	now := time.Now().Unix()

	// Build the update operation with chained Set calls
	update := d.table.Update(input.PK).
		Range(input.SK).
		Set("#Status = ?", string(*input.Status)).
		Set("#UpdatedAt = ?", now)

	// Set finishedAt for terminal states (SUCCESS or FAILED)
	if *input.Status == BuildStatusSuccess || *input.Status == BuildStatusFailed {
		update = update.Set("#FinishedAt = ?", now)
	}

	// Add error message if provided
	if input.ErrorMsg != nil {
		update = update.Set("#ErrorMsg = ?", *input.ErrorMsg)
	}

	// Create/update the "latest" magic record
	// Parse env from PK (format: {image}/{env})
	image, env, err := ParsePK(input.PK)
	if err != nil {
		return fmt.Errorf("failed to parse PK: %w", err)
	}

	latestRecord := &Record{
		PK:        NewPK(latest, env),
		SK:        input.PK.String(), // SK in latest record = PK from original (image/env identifier)
		ID:        NewID(input.PK, input.SK),
		Image:     image,
		Env:       env,
		Status:    *input.Status,
		UpdatedAt: now,
	}

	// Write both the update and the latest record in a transaction
	put := d.table.Put(latestRecord)

	if _, err := d.db.TransactWriteItemsWithContext(ctx, update, put); err != nil {
		return err
	}

	return nil
}

// Query returns all runs for a given image/env partition key
func (d *DAO) Query(ctx context.Context, pk PK) ([]Record, error) {
	var records []Record

	err := d.table.Query("#PK = ?", pk.String()).
		FindAllWithContext(ctx, &records)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	return records, nil
}

// QueryByImageEnv returns all runs for a given image and environment
func (d *DAO) QueryByImageEnv(ctx context.Context, image, env string) ([]Record, error) {
	pk := NewPK(image, env)
	return d.Query(ctx, pk)
}

// QueryLatestBuilds returns the latest run for each image in the given environment
// It queries the "latest" magic records where pk=latest/{env} and sk={image}/{env}
func (d *DAO) QueryLatestBuilds(ctx context.Context, env string) ([]Record, error) {
	pk := NewPK(latest, env)
	var records []Record

	err := d.table.Query("#PK = ?", pk).
		FindAllWithContext(ctx, &records)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest runs: %w", err)
	}

	// Sort by UpdatedAt descending (most recent first)
	// The records are already sorted by SK (image/env), but we want to sort by time
	for i := 0; i < len(records)-1; i++ {
		for j := i + 1; j < len(records); j++ {
			if records[j].UpdatedAt > records[i].UpdatedAt {
				records[i], records[j] = records[j], records[i]
			}
		}
	}

	ids := slicex.Map(records, func(record Record) ID {
		return record.GetID()
	})

	// Load full run records for each ID
	builds := make([]Record, 0, len(ids))
	for _, id := range ids {
		record, err := d.Find(ctx, id)
		if err != nil {
			// Skip records that are not found (may have been deleted)
			continue
		}
		builds = append(builds, record)
	}

	return builds, nil
}
