package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/catalog-approvals/backend/internal/apperr"
	"github.com/catalog-approvals/backend/internal/models"
	"github.com/redis/go-redis/v9"
)

const DefaultSpillKey = "ledger:spill"

// LedgerSpill is a Redis list of ledger entries waiting to be written to
// Postgres. Entries are pushed at the tail of the queue. A replay claims
// entries by moving them into a processing list and removes them from there
// once written, so a crash between claim and write leaves them recoverable.
// Entries that no longer decode go to a dead-letter list.
type LedgerSpill struct {
	client     *redis.Client
	key        string
	processing string
	dead       string
}

// SpilledEntry is a claimed entry together with its stored encoding, which
// identifies it in the processing list.
type SpilledEntry struct {
	Entry models.AuditLog
	Raw   string
}

func NewLedgerSpill(client *redis.Client, key string) *LedgerSpill {
	if key == "" {
		key = DefaultSpillKey
	}
	return &LedgerSpill{
		client:     client,
		key:        key,
		processing: key + ":processing",
		dead:       key + ":dead",
	}
}

func (s *LedgerSpill) Push(ctx context.Context, entries ...models.AuditLog) error {
	if len(entries) == 0 {
		return nil
	}
	values := make([]any, 0, len(entries))
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal ledger entry %s: %w", e.ID, err)
		}
		values = append(values, data)
	}
	if err := s.client.RPush(ctx, s.key, values...).Err(); err != nil {
		return apperr.Storage("spill ledger entries", err)
	}
	return nil
}

// Claim moves up to n entries from the head of the queue to the processing
// list. Raw values that fail to decode are returned separately in corrupt;
// they stay in the processing list until buried.
func (s *LedgerSpill) Claim(ctx context.Context, n int) (claimed []SpilledEntry, corrupt []string, err error) {
	if n <= 0 {
		return nil, nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, n)
	for i := range cmds {
		cmds[i] = pipe.LMove(ctx, s.key, s.processing, "LEFT", "RIGHT")
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, nil, apperr.Storage("claim spilled ledger entries", err)
	}

	for _, cmd := range cmds {
		raw, err := cmd.Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return claimed, corrupt, apperr.Storage("claim spilled ledger entries", err)
		}
		var e models.AuditLog
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			corrupt = append(corrupt, raw)
			continue
		}
		claimed = append(claimed, SpilledEntry{Entry: e, Raw: raw})
	}
	return claimed, corrupt, nil
}

// Ack drops written entries from the processing list.
func (s *LedgerSpill) Ack(ctx context.Context, raws ...string) error {
	if len(raws) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, raw := range raws {
			pipe.LRem(ctx, s.processing, 1, raw)
		}
		return nil
	})
	if err != nil {
		return apperr.Storage("ack spilled ledger entries", err)
	}
	return nil
}

// Requeue returns claimed entries to the head of the queue in their
// original order.
func (s *LedgerSpill) Requeue(ctx context.Context, raws ...string) error {
	if len(raws) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i := len(raws) - 1; i >= 0; i-- {
			pipe.LRem(ctx, s.processing, 1, raws[i])
			pipe.LPush(ctx, s.key, raws[i])
		}
		return nil
	})
	if err != nil {
		return apperr.Storage("requeue spilled ledger entries", err)
	}
	return nil
}

// Bury moves undecodable entries from the processing list to the
// dead-letter list for manual inspection.
func (s *LedgerSpill) Bury(ctx context.Context, raws ...string) error {
	if len(raws) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, raw := range raws {
			pipe.LRem(ctx, s.processing, 1, raw)
			pipe.RPush(ctx, s.dead, raw)
		}
		return nil
	})
	if err != nil {
		return apperr.Storage("bury spilled ledger entries", err)
	}
	return nil
}

// Recover moves everything left in the processing list by an interrupted
// replay back to the head of the queue.
func (s *LedgerSpill) Recover(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := s.client.LMove(ctx, s.processing, s.key, "RIGHT", "LEFT").Err()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, apperr.Storage("recover spilled ledger entries", err)
		}
		moved++
	}
}

func (s *LedgerSpill) Len(ctx context.Context) (int64, error) {
	n, err := s.client.LLen(ctx, s.key).Result()
	if err != nil {
		return 0, apperr.Storage("count spilled ledger entries", err)
	}
	return n, nil
}

// DeadLen counts entries in the dead-letter list.
func (s *LedgerSpill) DeadLen(ctx context.Context) (int64, error) {
	n, err := s.client.LLen(ctx, s.dead).Result()
	if err != nil {
		return 0, apperr.Storage("count dead ledger entries", err)
	}
	return n, nil
}
