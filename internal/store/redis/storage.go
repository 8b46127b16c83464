// Package redis is the Redis-backed implementation of the persistence store.
//
// Records are stored as JSON values. The all-time leaderboard is a sorted set
// scored by points, so TopPlayers is a single ZREVRANGE plus an MGET. Clan
// membership and active battles are kept in index keys updated in the same
// pipeline as the record they index.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"pit-arena/internal/config"
	"pit-arena/internal/store"
)

// Storage is a Redis-backed implementation of the store interface
type Storage struct {
	client *redis.Client
}

// New creates a new Redis storage instance and verifies the connection
func New(cfg config.RedisConfig) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{client: client}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client) *Storage {
	return &Storage{client: client}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ store.Store = (*Storage)(nil)

// Player operations

func (s *Storage) GetPlayer(ctx context.Context, id string) (*store.PlayerRecord, error) {
	data, err := s.client.Get(ctx, playerKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	var rec store.PlayerRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Storage) UpsertPlayer(ctx context.Context, rec *store.PlayerRecord) error {
	prev, err := s.GetPlayer(ctx, rec.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, playerKey(rec.ID), data, 0)
	pipe.ZAdd(ctx, leaderboardKey(), redis.Z{Score: float64(rec.Points), Member: rec.ID})
	if prev != nil && prev.Clan != rec.Clan && prev.Clan != "" {
		pipe.SRem(ctx, clanMembersKey(prev.Clan), rec.ID)
	}
	if rec.Clan != "" {
		pipe.SAdd(ctx, clanMembersKey(rec.Clan), rec.ID)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// AdjustPoints applies a delta clamped at zero and returns the new balance.
// The engine is the single logical writer, so read-modify-write is safe here.
func (s *Storage) AdjustPoints(ctx context.Context, id string, delta int) (int, error) {
	rec, err := s.GetPlayer(ctx, id)
	if err != nil {
		return 0, err
	}

	rec.Points += delta
	if rec.Points < 0 {
		rec.Points = 0
	}

	if err := s.UpsertPlayer(ctx, rec); err != nil {
		return 0, err
	}
	return rec.Points, nil
}

func (s *Storage) TransferOwnership(ctx context.Context, id, clan, owner string) error {
	rec, err := s.GetPlayer(ctx, id)
	if err != nil {
		return err
	}

	rec.Clan = clan
	rec.OwnerID = owner
	return s.UpsertPlayer(ctx, rec)
}

func (s *Storage) TopPlayers(ctx context.Context, n int) ([]*store.PlayerRecord, error) {
	ids, err := s.client.ZRevRange(ctx, leaderboardKey(), 0, int64(n)-1).Result()
	if err != nil {
		return nil, err
	}
	return s.fetchPlayers(ctx, ids)
}

// Clan operations

func (s *Storage) CreateClan(ctx context.Context, clan *store.Clan) error {
	data, err := json.Marshal(clan)
	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(ctx, clanKey(clan.Name), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrClanExists
	}
	return nil
}

func (s *Storage) GetClan(ctx context.Context, name string) (*store.Clan, error) {
	data, err := s.client.Get(ctx, clanKey(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	var clan store.Clan
	if err := json.Unmarshal(data, &clan); err != nil {
		return nil, err
	}
	return &clan, nil
}

func (s *Storage) RenameClan(ctx context.Context, oldName, newName string) error {
	clan, err := s.GetClan(ctx, oldName)
	if err != nil {
		return err
	}

	exists, err := s.client.Exists(ctx, clanKey(newName)).Result()
	if err != nil {
		return err
	}
	if exists > 0 {
		return store.ErrClanExists
	}

	clan.Name = newName
	data, err := json.Marshal(clan)
	if err != nil {
		return err
	}

	members, err := s.client.SMembers(ctx, clanMembersKey(oldName)).Result()
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, clanKey(newName), data, 0)
	pipe.Del(ctx, clanKey(oldName))
	if len(members) > 0 {
		args := make([]interface{}, len(members))
		for i, m := range members {
			args[i] = m
		}
		pipe.SAdd(ctx, clanMembersKey(newName), args...)
	}
	pipe.Del(ctx, clanMembersKey(oldName))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetClanMembers(ctx context.Context, clan string) ([]*store.PlayerRecord, error) {
	ids, err := s.client.SMembers(ctx, clanMembersKey(clan)).Result()
	if err != nil {
		return nil, err
	}

	members, err := s.fetchPlayers(ctx, ids)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(members, func(i, j int) bool {
		if members[i].Points != members[j].Points {
			return members[i].Points > members[j].Points
		}
		return members[i].ID < members[j].ID
	})
	return members, nil
}

// Battle operations

func (s *Storage) CreateBattle(ctx context.Context, battle *store.ClanBattle) (string, error) {
	for _, clan := range []string{battle.Challenger, battle.Defender} {
		active, err := s.GetActiveBattle(ctx, clan)
		if err != nil {
			return "", err
		}
		if active != nil {
			return "", store.ErrBattleActive
		}
	}

	data, err := json.Marshal(battle)
	if err != nil {
		return "", err
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, battleKey(battle.ID), data, 0)
	pipe.Set(ctx, activeBattleKey(battle.Challenger), battle.ID, 0)
	pipe.Set(ctx, activeBattleKey(battle.Defender), battle.ID, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}
	return battle.ID, nil
}

func (s *Storage) GetActiveBattle(ctx context.Context, clan string) (*store.ClanBattle, error) {
	id, err := s.client.Get(ctx, activeBattleKey(clan)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	data, err := s.client.Get(ctx, battleKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var battle store.ClanBattle
	if err := json.Unmarshal(data, &battle); err != nil {
		return nil, err
	}
	return &battle, nil
}

func (s *Storage) SetBattleStatus(ctx context.Context, id string, status store.BattleStatus, winner string) error {
	data, err := s.client.Get(ctx, battleKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return store.ErrNotFound
		}
		return err
	}

	var battle store.ClanBattle
	if err := json.Unmarshal(data, &battle); err != nil {
		return err
	}

	battle.Status = status
	battle.Winner = winner

	updated, err := json.Marshal(&battle)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, battleKey(id), updated, 0)
	if status.Terminal() {
		pipe.Del(ctx, activeBattleKey(battle.Challenger))
		pipe.Del(ctx, activeBattleKey(battle.Defender))
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) RecordRound(ctx context.Context, round *store.RoundRecord) error {
	data, err := json.Marshal(round)
	if err != nil {
		return err
	}

	raw, err := s.client.Get(ctx, battleKey(round.BattleID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return store.ErrNotFound
		}
		return err
	}

	var battle store.ClanBattle
	if err := json.Unmarshal(raw, &battle); err != nil {
		return err
	}
	if round.Number > battle.Round {
		battle.Round = round.Number
	}

	updated, err := json.Marshal(&battle)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, battleRoundsKey(round.BattleID), data)
	pipe.Set(ctx, battleKey(round.BattleID), updated, 0)
	_, err = pipe.Exec(ctx)
	return err
}

// fetchPlayers loads records for the given ids, skipping ids that have
// vanished between the index read and the MGET.
func (s *Storage) fetchPlayers(ctx context.Context, ids []string) ([]*store.PlayerRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = playerKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	records := make([]*store.PlayerRecord, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var rec store.PlayerRecord
		if err := json.Unmarshal([]byte(str), &rec); err != nil {
			continue
		}
		records = append(records, &rec)
	}
	return records, nil
}
