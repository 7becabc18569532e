package lockdao

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/savaki/ddb/v2"
)

const (
	lockSK       = "LOCK"
	lockTTLHours = 1 // Auto-expire locks after 1 hour
)

// PK represents the partition key: {Env}/{Image}
type PK string

// NewPK creates a partition key from env and image
func NewPK(env, image string) PK {
	return PK(fmt.Sprintf("%s/%s", env, image))
}

// ParsePK parses a partition key into env and image components
func ParsePK(pk PK) (env, image string, err error) {
	s := string(pk)
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid PK format: %s, expected {env}/{image}", s)
	}
	return parts[0], parts[1], nil
}

// String returns the string representation
func (pk PK) String() string {
	return string(pk)
}

// ID represents a lock ID in format {env}/{image}:LOCK
// Example: dev/dtbase:LOCK
// Note: SK is always "LOCK" so ID primarily identifies the env/image
type ID string

// NewID creates an ID from env and image
func NewID(env, image string) ID {
	pk := NewPK(env, image)
	return ID(fmt.Sprintf("%s:%s", pk, lockSK))
}

// ParseID parses an ID into env and image components
func ParseID(id ID) (env, image string, err error) {
	s := string(id)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid ID format: %s, expected {env}/{image}:LOCK", s)
	}

	// Verify SK is LOCK
	if parts[1] != lockSK {
		return "", "", fmt.Errorf("invalid ID format: %s, expected SK to be 'LOCK', got '%s'", s, parts[1])
	}

	// Parse PK part
	pkParts := strings.Split(parts[0], "/")
	if len(pkParts) != 2 {
		return "", "", fmt.Errorf("invalid PK in ID: %s, expected {env}/{image}", parts[0])
	}

	return pkParts[0], pkParts[1], nil
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// Record represents a pipeline run lock
type Record struct {
	PK         PK     `ddb:"hash" dynamodbav:"pk"`  // {Env}/{Image}
	SK         string `ddb:"range" dynamodbav:"sk"` // Always "LOCK"
	RunID      string `dynamodbav:"run_id"`         // KSUID of the run holding the lock
	AcquiredAt int64  `dynamodbav:"acquired_at"`    // Unix timestamp when lock was acquired
	TTL        int64  `dynamodbav:"ttl"`            // Unix timestamp for DynamoDB TTL expiry
}

// GetID returns the ID for this record
func (r *Record) GetID() ID {
	env, image, _ := ParsePK(r.PK)
	return NewID(env, image)
}

// AcquireInput contains fields for acquiring a run lock
type AcquireInput struct {
	Env   string // Environment label
	Image string // Image name
	RunID string // Run KSUID
}

// ReleaseInput contains fields for releasing a run lock
type ReleaseInput struct {
	ID    ID     // Lock ID
	RunID string // Run KSUID (must match lock holder)
}

// DAO provides data access operations for run locks
type DAO struct {
	db    *ddb.DDB
	table *ddb.Table
}

// TableName derives the default lock table name from environment
func TableName(env string) string {
	return fmt.Sprintf("%s-dt-deployer-locks", env)
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

// Acquire attempts to acquire a run lock
// Returns the lock record if acquired, nil if already held by another run
func (d *DAO) Acquire(ctx context.Context, input AcquireInput) (*Record, bool, error) {
	id := NewID(input.Env, input.Image)

	// Check if lock already exists
	existing, err := d.Find(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check existing lock: %w", err)
	}

	if existing != nil {
		// Lock is held by another run (or same run on retry)
		if existing.RunID == input.RunID {
			// Same run already holds the lock (retry scenario)
			return existing, true, nil
		}
		// Different run holds the lock
		return nil, false, nil
	}

	// No lock exists, create it
	now := time.Now().Unix()
	ttl := now + (lockTTLHours * 3600)

	pk := NewPK(input.Env, input.Image)
	record := &Record{
		PK:         pk,
		SK:         lockSK,
		RunID:      input.RunID,
		AcquiredAt: now,
		TTL:        ttl,
	}

	err = d.table.Put(record).RunWithContext(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create lock: %w", err)
	}

	return record, true, nil
}

// Find retrieves a lock record by ID
// Returns nil if not found
func (d *DAO) Find(ctx context.Context, id ID) (*Record, error) {
	env, image, err := ParseID(id)
	if err != nil {
		return nil, err
	}

	pk := NewPK(env, image)
	var record Record

	err = d.table.Get(pk.String()).
		Range(lockSK).
		ConsistentRead(true).
		ScanWithContext(ctx, &record)
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "item not found") || strings.Contains(errStr, "ItemNotFound") {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get lock: %w", err)
	}

	if record.PK == "" && record.SK == "" {
		return nil, nil
	}

	return &record, nil
}

// Release releases a run lock
// Only succeeds if the lock is held by the specified runID (prevents unauthorized releases)
func (d *DAO) Release(ctx context.Context, input ReleaseInput) error {
	env, image, err := ParseID(input.ID)
	if err != nil {
		return err
	}

	// Verify lock is held by this run before releasing
	existing, err := d.Find(ctx, input.ID)
	if err != nil {
		return fmt.Errorf("failed to check lock: %w", err)
	}

	if existing == nil {
		// No lock exists (already released or expired)
		return nil
	}

	if existing.RunID != input.RunID {
		return fmt.Errorf("lock not held by run %s (held by %s)", input.RunID, existing.RunID)
	}

	// Delete the lock
	pk := NewPK(env, image)
	err = d.table.Delete(pk.String()).
		Range(lockSK).
		RunWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete lock: %w", err)
	}

	return nil
}

// Delete removes a lock record regardless of who holds it
// Use with caution - only for cleanup/recovery scenarios
func (d *DAO) Delete(ctx context.Context, id ID) error {
	env, image, err := ParseID(id)
	if err != nil {
		return err
	}

	pk := NewPK(env, image)

	err = d.table.Delete(pk.String()).
		Range(lockSK).
		RunWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete lock: %w", err)
	}

	return nil
}
