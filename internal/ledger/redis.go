package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/0gfoundation/exchange-booth/internal/account"
	"github.com/0gfoundation/exchange-booth/internal/address"
	"github.com/0gfoundation/exchange-booth/internal/errs"
)

const accountKeyPrefix = "ledger:account:"

// RedisStore keeps one hash per account:
//
//	ledger:account:<base58> -> owner, lamports, data, executable, version
//
// A deleted account keeps only its version field.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func accountKey(key address.Address) string {
	return accountKeyPrefix + key.String()
}

func (s *RedisStore) Get(ctx context.Context, key address.Address) (*account.Info, uint64, error) {
	vals, err := s.rdb.HGetAll(ctx, accountKey(key)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("get account %s: %w", key, err)
	}
	return accountFromMap(key, vals)
}

func (s *RedisStore) Commit(ctx context.Context, updates []*account.Info, versions map[address.Address]uint64) error {
	if len(updates) == 0 {
		return nil
	}
	keys := make([]string, len(updates))
	for i, u := range updates {
		keys[i] = accountKey(u.Key)
	}

	txf := func(tx *redis.Tx) error {
		for i, u := range updates {
			cur, err := tx.HGet(ctx, keys[i], "version").Uint64()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if cur != versions[u.Key] {
				return errs.Wrapf(errs.ErrWriteConflict, "account %s at version %d, expected %d", u.Key, cur, versions[u.Key])
			}
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, u := range updates {
				next := versions[u.Key] + 1
				if !u.Exists() {
					pipe.Del(ctx, keys[i])
					pipe.HSet(ctx, keys[i], "version", next)
					continue
				}
				pipe.HSet(ctx, keys[i], accountFields(u, next)...)
			}
			return nil
		})
		return err
	}

	err := s.rdb.Watch(ctx, txf, keys...)
	if errors.Is(err, redis.TxFailedErr) {
		return errs.Wrap(errs.ErrWriteConflict, err)
	}
	if err != nil && !errors.Is(err, errs.ErrWriteConflict) {
		return fmt.Errorf("commit %d accounts: %w", len(updates), err)
	}
	return err
}

func (s *RedisStore) Put(ctx context.Context, info *account.Info) error {
	key := accountKey(info.Key)
	cur, err := s.rdb.HGet(ctx, key, "version").Uint64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("put account %s: %w", info.Key, err)
	}
	return s.rdb.HSet(ctx, key, accountFields(info, cur+1)...).Err()
}

// Scan walks every stored account and returns those owned by owner.
func (s *RedisStore) Scan(ctx context.Context, owner address.Address) ([]*account.Info, error) {
	var out []*account.Info
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, accountKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan accounts: %w", err)
		}
		for _, k := range keys {
			addr, err := address.Parse(k[len(accountKeyPrefix):])
			if err != nil {
				continue
			}
			vals, err := s.rdb.HGetAll(ctx, k).Result()
			if err != nil || len(vals) == 0 {
				continue
			}
			info, _, err := accountFromMap(addr, vals)
			if err != nil || !info.Exists() || info.Owner != owner {
				continue
			}
			out = append(out, info)
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	return out, nil
}

func accountFields(info *account.Info, version uint64) []any {
	return []any{
		"owner", info.Owner.String(),
		"lamports", info.Lamports,
		"data", info.Data,
		"executable", info.Executable,
		"version", version,
	}
}

func accountFromMap(key address.Address, m map[string]string) (*account.Info, uint64, error) {
	version, _ := strconv.ParseUint(m["version"], 10, 64)
	if _, ok := m["lamports"]; !ok {
		return empty(key), version, nil
	}
	owner, err := address.Parse(m["owner"])
	if err != nil {
		return nil, 0, fmt.Errorf("account %s owner: %w", key, err)
	}
	lamports, err := strconv.ParseUint(m["lamports"], 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("account %s lamports: %w", key, err)
	}
	executable, _ := strconv.ParseBool(m["executable"])
	return &account.Info{
		Key:        key,
		Owner:      owner,
		Lamports:   lamports,
		Data:       []byte(m["data"]),
		Executable: executable,
	}, version, nil
}
