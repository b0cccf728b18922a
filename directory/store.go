package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "dir"

var (
	// ErrUsernameClaimed is an exported constant or variable used by the account engine.
	ErrUsernameClaimed = errors.New("username already claimed")
	// ErrRecordNotFound is an exported constant or variable used by the account engine.
	ErrRecordNotFound = errors.New("directory record not found")
	// ErrUsernameNotFound is an exported constant or variable used by the account engine.
	ErrUsernameNotFound = errors.New("username not found")
	// ErrRedisUnavailable is an exported constant or variable used by the account engine.
	ErrRedisUnavailable = errors.New("directory redis unavailable")
)

// Record defines a public type used by goaccount APIs.
//
// Record is the profile document stored per account. Empty fields in a
// SetRecord call leave the stored values untouched.
type Record struct {
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	PhotoURL  string `json:"photo_url,omitempty"`
	Status    string `json:"status,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

// IndexEntry defines a public type used by goaccount APIs.
//
// IndexEntry is the value stored under a lowercased username index key. It
// points back at the owning account and carries enough to resolve a login
// by username without touching the record keyspace.
type IndexEntry struct {
	OwnerID  string `json:"owner_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// claimScript performs the conditional create on the index key. A key held
// by the same owner is overwritten (idempotent re-claim, casing refresh);
// a key held by anyone else leaves the store untouched.
const claimScript = `
local existing = redis.call("GET", KEYS[1])
if not existing then
  redis.call("SET", KEYS[1], ARGV[1])
  return 1
end
local entry = cjson.decode(existing)
if entry.owner_id == ARGV[2] then
  redis.call("SET", KEYS[1], ARGV[1])
  return 1
end
return 0
`

var claimLua = redis.NewScript(claimScript)

// releaseScript deletes the index key only when it is held by the caller.
const releaseScript = `
local existing = redis.call("GET", KEYS[1])
if not existing then
  return 1
end
local entry = cjson.decode(existing)
if entry.owner_id == ARGV[1] then
  redis.call("DEL", KEYS[1])
  return 1
end
return 0
`

var releaseLua = redis.NewScript(releaseScript)

// Store defines a public type used by goaccount APIs.
//
// Store instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Store struct {
	redis  *redis.Client
	prefix string
}

// New describes the new operation and its observable behavior.
//
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New(redisClient *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &Store{redis: redisClient, prefix: prefix}
}

func (s *Store) recordKey(ownerID string) string {
	return s.prefix + ":acct:" + ownerID
}

func (s *Store) usernameKey(username string) string {
	return s.prefix + ":uname:" + strings.ToLower(username)
}

// IsUsernameUnique reports whether no account currently holds username.
// The check is case-insensitive.
func (s *Store) IsUsernameUnique(ctx context.Context, username string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.usernameKey(username)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n == 0, nil
}

// ClaimUsername atomically binds username to ownerID. Claiming a name the
// owner already holds succeeds and refreshes the stored casing and email;
// claiming a name held by another account returns ErrUsernameClaimed.
func (s *Store) ClaimUsername(ctx context.Context, ownerID, username, email string) error {
	entry, err := json.Marshal(IndexEntry{OwnerID: ownerID, Username: username, Email: email})
	if err != nil {
		return err
	}

	res, err := claimLua.Run(ctx, s.redis, []string{s.usernameKey(username)}, entry, ownerID).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if res == 0 {
		return ErrUsernameClaimed
	}
	return nil
}

// ReleaseUsername removes the index entry for username when it is held by
// ownerID. Releasing an unclaimed name, or a name held by another account,
// is a no-op.
func (s *Store) ReleaseUsername(ctx context.Context, ownerID, username string) error {
	_, err := releaseLua.Run(ctx, s.redis, []string{s.usernameKey(username)}, ownerID).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// OwnerOf resolves the account ID holding username. An unclaimed name
// returns the empty string. Callers use it to tell a real conflict from a
// claim left behind by their own interrupted attempt.
func (s *Store) OwnerOf(ctx context.Context, username string) (string, error) {
	data, err := s.redis.Get(ctx, s.usernameKey(username)).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var entry IndexEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return "", fmt.Errorf("decode index entry: %w", err)
	}
	return entry.OwnerID, nil
}

// EmailForUsername resolves the email bound to username, for logins that
// identify the account by name.
func (s *Store) EmailForUsername(ctx context.Context, username string) (string, error) {
	data, err := s.redis.Get(ctx, s.usernameKey(username)).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", ErrUsernameNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var entry IndexEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return "", fmt.Errorf("decode index entry: %w", err)
	}
	return entry.Email, nil
}

// SetRecord merges record into the stored document for ownerID. Only fields
// present in record overwrite stored values; a missing document is created.
func (s *Store) SetRecord(ctx context.Context, ownerID string, record Record) error {
	const maxRetries = 4
	key := s.recordKey(ownerID)

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			current := Record{}
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if err == nil {
				if decodeErr := json.Unmarshal(data, &current); decodeErr != nil {
					return fmt.Errorf("decode directory record: %w", decodeErr)
				}
			}

			merged := mergeRecord(current, record)
			if merged.CreatedAt == 0 {
				merged.CreatedAt = time.Now().Unix()
			}

			encoded, err := json.Marshal(merged)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, 0)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		return nil
	}

	return fmt.Errorf("%w: record update contention", ErrRedisUnavailable)
}

// GetRecord loads the stored document for ownerID.
func (s *Store) GetRecord(ctx context.Context, ownerID string) (*Record, error) {
	data, err := s.redis.Get(ctx, s.recordKey(ownerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode directory record: %w", err)
	}
	return &record, nil
}

// RecordExists reports whether a document is stored for ownerID.
func (s *Store) RecordExists(ctx context.Context, ownerID string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.recordKey(ownerID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n == 1, nil
}

// DeleteRecord removes the stored document for ownerID. Deleting a missing
// document is not an error.
func (s *Store) DeleteRecord(ctx context.Context, ownerID string) error {
	if err := s.redis.Del(ctx, s.recordKey(ownerID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func mergeRecord(current, update Record) Record {
	if update.Username != "" {
		current.Username = update.Username
	}
	if update.Email != "" {
		current.Email = update.Email
	}
	if update.PhotoURL != "" {
		current.PhotoURL = update.PhotoURL
	}
	if update.Status != "" {
		current.Status = update.Status
	}
	if update.CreatedAt != 0 {
		current.CreatedAt = update.CreatedAt
	}
	return current
}
