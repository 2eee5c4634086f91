package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/sis-admin/internal/models"
)

// SelectionRepository keeps each user's enrollment selection in Redis under
// selection:{user}:enrollments.
type SelectionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSelectionRepository constructs the store. Every write refreshes the TTL.
func NewSelectionRepository(client *redis.Client, ttl time.Duration) *SelectionRepository {
	return &SelectionRepository{client: client, ttl: ttl}
}

// SelectionKey returns the Redis key for a user's selection.
func SelectionKey(userID string) string {
	return "selection:" + userID + ":enrollments"
}

// ErrSelectionConflict reports that other writers changed the selection on
// every attempt of an Update.
var ErrSelectionConflict = errors.New("selection changed concurrently")

const selectionUpdateAttempts = 5

// SelectionMutation derives the next set from the stored one. Returning
// false leaves the stored set untouched.
type SelectionMutation func(set []models.EnrollmentRow) ([]models.EnrollmentRow, bool)

// Get returns the stored selection, or an empty set when none is stored.
func (r *SelectionRepository) Get(ctx context.Context, userID string) ([]models.EnrollmentRow, error) {
	return decodeSelection(r.client.Get(ctx, SelectionKey(userID)).Bytes())
}

// Update applies mutate to the stored selection under WATCH, so a change
// made by another tab between the read and the write is never overwritten;
// the mutation is re-run on the fresh set instead. An empty result deletes
// the key, any other write refreshes the TTL. It returns the set as stored.
func (r *SelectionRepository) Update(ctx context.Context, userID string, mutate SelectionMutation) ([]models.EnrollmentRow, error) {
	key := SelectionKey(userID)
	var stored []models.EnrollmentRow
	txn := func(tx *redis.Tx) error {
		current, err := decodeSelection(tx.Get(ctx, key).Bytes())
		if err != nil {
			return err
		}
		next, write := mutate(current)
		if !write {
			stored = current
			return nil
		}
		var payload []byte
		if len(next) > 0 {
			if payload, err = json.Marshal(next); err != nil {
				return fmt.Errorf("encode selection: %w", err)
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if payload == nil {
				pipe.Del(ctx, key)
				return nil
			}
			pipe.Set(ctx, key, payload, r.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		stored = next
		return nil
	}

	for attempt := 0; attempt < selectionUpdateAttempts; attempt++ {
		err := r.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("update selection: %w", err)
		}
		return stored, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrSelectionConflict, key)
}

// Delete drops the user's selection.
func (r *SelectionRepository) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, SelectionKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete selection: %w", err)
	}
	return nil
}

func decodeSelection(raw []byte, err error) ([]models.EnrollmentRow, error) {
	set := make([]models.EnrollmentRow, 0)
	switch {
	case errors.Is(err, redis.Nil):
		return set, nil
	case err != nil:
		return nil, fmt.Errorf("load selection: %w", err)
	}
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("decode selection: %w", err)
	}
	return set, nil
}
