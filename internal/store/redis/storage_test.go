package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"pit-arena/internal/store"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	s.storage = NewWithClient(client)
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) player(id, name string, points int, clan string) *store.PlayerRecord {
	return &store.PlayerRecord{
		ID:             id,
		Name:           name,
		Points:         points,
		DrawNumber:     42,
		CharacterImage: 3,
		Clan:           clan,
	}
}

// Player tests

func (s *StorageSuite) TestUpsertAndGetPlayer() {
	rec := s.player("p1", "Ana", 7, "")
	rec.Challenges = store.ChallengeState{Date: "2026-01-15", RevengeKills: 2}

	s.Require().NoError(s.storage.UpsertPlayer(s.ctx, rec))

	got, err := s.storage.GetPlayer(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal("Ana", got.Name)
	s.Equal(7, got.Points)
	s.Equal(42, got.DrawNumber)
	s.Equal(2, got.Challenges.RevengeKills)
}

func (s *StorageSuite) TestGetPlayerNotFound() {
	_, err := s.storage.GetPlayer(s.ctx, "nobody")
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *StorageSuite) TestAdjustPointsFloorsAtZero() {
	s.Require().NoError(s.storage.UpsertPlayer(s.ctx, s.player("p1", "Ana", 2, "")))

	balance, err := s.storage.AdjustPoints(s.ctx, "p1", -5)
	s.Require().NoError(err)
	s.Equal(0, balance)

	balance, err = s.storage.AdjustPoints(s.ctx, "p1", 3)
	s.Require().NoError(err)
	s.Equal(3, balance)
}

func (s *StorageSuite) TestAdjustPointsUnknownPlayer() {
	_, err := s.storage.AdjustPoints(s.ctx, "nobody", 1)
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *StorageSuite) TestTransferOwnership() {
	s.Require().NoError(s.storage.UpsertPlayer(s.ctx, s.player("p1", "Bo", 0, "Bears")))

	s.Require().NoError(s.storage.TransferOwnership(s.ctx, "p1", "Wolves", "creator-1"))

	got, err := s.storage.GetPlayer(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal("Wolves", got.Clan)
	s.Equal("creator-1", got.OwnerID)

	// The membership index follows the transfer.
	members, err := s.storage.GetClanMembers(s.ctx, "Wolves")
	s.Require().NoError(err)
	s.Require().Len(members, 1)
	s.Equal("p1", members[0].ID)

	old, err := s.storage.GetClanMembers(s.ctx, "Bears")
	s.Require().NoError(err)
	s.Empty(old)
}

func (s *StorageSuite) TestTopPlayersOrdersByPoints() {
	s.Require().NoError(s.storage.UpsertPlayer(s.ctx, s.player("p1", "Ana", 3, "")))
	s.Require().NoError(s.storage.UpsertPlayer(s.ctx, s.player("p2", "Bo", 9, "")))
	s.Require().NoError(s.storage.UpsertPlayer(s.ctx, s.player("p3", "Cal", 5, "")))

	top, err := s.storage.TopPlayers(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(top, 2)
	s.Equal("p2", top[0].ID)
	s.Equal("p3", top[1].ID)
}

func (s *StorageSuite) TestTopPlayersTracksUpdates() {
	s.Require().NoError(s.storage.UpsertPlayer(s.ctx, s.player("p1", "Ana", 3, "")))
	s.Require().NoError(s.storage.UpsertPlayer(s.ctx, s.player("p2", "Bo", 9, "")))

	// Ana overtakes Bo; the leaderboard ZSET must re-score her.
	s.Require().NoError(s.storage.UpsertPlayer(s.ctx, s.player("p1", "Ana", 20, "")))

	top, err := s.storage.TopPlayers(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(top, 2)
	s.Equal("p1", top[0].ID)
}

// Clan tests

func (s *StorageSuite) TestCreateAndGetClan() {
	clan := &store.Clan{Name: "Wolves", CreatorID: "p1", CreatedAt: time.Now().UTC()}
	s.Require().NoError(s.storage.CreateClan(s.ctx, clan))

	got, err := s.storage.GetClan(s.ctx, "Wolves")
	s.Require().NoError(err)
	s.Equal("p1", got.CreatorID)

	s.ErrorIs(s.storage.CreateClan(s.ctx, clan), store.ErrClanExists)
}

func (s *StorageSuite) TestGetClanNotFound() {
	_, err := s.storage.GetClan(s.ctx, "Ghosts")
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *StorageSuite) TestRenameClanMovesMembers() {
	s.Require().NoError(s.storage.CreateClan(s.ctx, &store.Clan{Name: "Wolves", CreatorID: "p1"}))
	s.Require().NoError(s.storage.UpsertPlayer(s.ctx, s.player("p1", "Ana", 5, "Wolves")))
	s.Require().NoError(s.storage.UpsertPlayer(s.ctx, s.player("p2", "Bo", 2, "Wolves")))

	s.Require().NoError(s.storage.RenameClan(s.ctx, "Wolves", "Hounds"))

	_, err := s.storage.GetClan(s.ctx, "Wolves")
	s.ErrorIs(err, store.ErrNotFound)

	got, err := s.storage.GetClan(s.ctx, "Hounds")
	s.Require().NoError(err)
	s.Equal("p1", got.CreatorID)

	members, err := s.storage.GetClanMembers(s.ctx, "Hounds")
	s.Require().NoError(err)
	s.Len(members, 2)
}

func (s *StorageSuite) TestRenameClanRejectsTakenName() {
	s.Require().NoError(s.storage.CreateClan(s.ctx, &store.Clan{Name: "Wolves", CreatorID: "p1"}))
	s.Require().NoError(s.storage.CreateClan(s.ctx, &store.Clan{Name: "Bears", CreatorID: "p2"}))

	s.ErrorIs(s.storage.RenameClan(s.ctx, "Wolves", "Bears"), store.ErrClanExists)
}

func (s *StorageSuite) TestGetClanMembersSortsByPoints() {
	s.Require().NoError(s.storage.UpsertPlayer(s.ctx, s.player("p1", "Ana", 2, "Wolves")))
	s.Require().NoError(s.storage.UpsertPlayer(s.ctx, s.player("p2", "Bo", 8, "Wolves")))
	s.Require().NoError(s.storage.UpsertPlayer(s.ctx, s.player("p3", "Cal", 8, "Wolves")))

	members, err := s.storage.GetClanMembers(s.ctx, "Wolves")
	s.Require().NoError(err)
	s.Require().Len(members, 3)
	s.Equal("p2", members[0].ID) // ties break by ID
	s.Equal("p3", members[1].ID)
	s.Equal("p1", members[2].ID)
}

// Battle tests

func (s *StorageSuite) battle(id string) *store.ClanBattle {
	return &store.ClanBattle{
		ID:         id,
		Challenger: "Wolves",
		Defender:   "Bears",
		Status:     store.BattlePending,
		CreatedAt:  time.Now().UTC(),
	}
}

func (s *StorageSuite) TestCreateBattleAndActiveIndex() {
	id, err := s.storage.CreateBattle(s.ctx, s.battle("bt1"))
	s.Require().NoError(err)
	s.Equal("bt1", id)

	for _, clan := range []string{"Wolves", "Bears"} {
		active, err := s.storage.GetActiveBattle(s.ctx, clan)
		s.Require().NoError(err)
		s.Require().NotNil(active)
		s.Equal("bt1", active.ID)
	}
}

func (s *StorageSuite) TestCreateBattleRejectsBusyClan() {
	_, err := s.storage.CreateBattle(s.ctx, s.battle("bt1"))
	s.Require().NoError(err)

	second := s.battle("bt2")
	second.Defender = "Crows"
	_, err = s.storage.CreateBattle(s.ctx, second)
	s.ErrorIs(err, store.ErrBattleActive)
}

func (s *StorageSuite) TestTerminalStatusClearsActiveIndex() {
	_, err := s.storage.CreateBattle(s.ctx, s.battle("bt1"))
	s.Require().NoError(err)

	// Non-terminal transition keeps both clans busy.
	s.Require().NoError(s.storage.SetBattleStatus(s.ctx, "bt1", store.BattleInProgress, ""))
	active, err := s.storage.GetActiveBattle(s.ctx, "Wolves")
	s.Require().NoError(err)
	s.Require().NotNil(active)
	s.Equal(store.BattleInProgress, active.Status)

	s.Require().NoError(s.storage.SetBattleStatus(s.ctx, "bt1", store.BattleCompleted, "Wolves"))
	active, err = s.storage.GetActiveBattle(s.ctx, "Wolves")
	s.Require().NoError(err)
	s.Nil(active)
	active, err = s.storage.GetActiveBattle(s.ctx, "Bears")
	s.Require().NoError(err)
	s.Nil(active)
}

func (s *StorageSuite) TestSetBattleStatusUnknownBattle() {
	err := s.storage.SetBattleStatus(s.ctx, "bogus", store.BattleAccepted, "")
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *StorageSuite) TestRecordRoundAdvancesBattle() {
	_, err := s.storage.CreateBattle(s.ctx, s.battle("bt1"))
	s.Require().NoError(err)

	s.Require().NoError(s.storage.RecordRound(s.ctx, &store.RoundRecord{
		BattleID:       "bt1",
		Number:         1,
		ChallengerWins: 2,
		DefenderWins:   1,
		WinnerClan:     "Wolves",
		PlayedAt:       time.Now().UTC(),
	}))
	s.Require().NoError(s.storage.RecordRound(s.ctx, &store.RoundRecord{
		BattleID: "bt1",
		Number:   2,
		PlayedAt: time.Now().UTC(),
	}))

	active, err := s.storage.GetActiveBattle(s.ctx, "Wolves")
	s.Require().NoError(err)
	s.Require().NotNil(active)
	s.Equal(2, active.Round)
}

func (s *StorageSuite) TestRecordRoundUnknownBattle() {
	err := s.storage.RecordRound(s.ctx, &store.RoundRecord{BattleID: "bogus", Number: 1})
	s.ErrorIs(err, store.ErrNotFound)
}
