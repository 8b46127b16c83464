// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all game and server settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
	"time"
)

// =============================================================================
// GAME RULES CONFIGURATION
// =============================================================================

// GameConfig holds the tunable combat and metagame rules.
// These values are server-authoritative and cannot be modified by clients.
type GameConfig struct {
	RevengeTTL       time.Duration // How long a revenge claim stays redeemable
	DefendTimeout    time.Duration // Defend posture expires after this
	TickInterval     time.Duration // Combat resolution pass cadence
	SweepInterval    time.Duration // Background expiry sweep cadence
	StreakKillAt     int           // Streak threshold flagged in results
	ClanCreateCost   int           // Points required to found a clan
	ClanNameMax      int           // Maximum clan name length
	NameMax          int           // Maximum display name length
	HeckleMax        int           // Maximum heckle message length
	HeckleFeedSize   int           // Recent heckles retained
	ChallengeReward  int           // Points paid per claimed daily challenge
	RevengeChallenge int           // Revenge kills needed for the daily claim
	StreakChallenge  int           // Streak needed for the daily claim
}

// DefaultGame returns the default game rules.
func DefaultGame() GameConfig {
	return GameConfig{
		RevengeTTL:       3 * time.Minute,
		DefendTimeout:    10 * time.Second,
		TickInterval:     500 * time.Millisecond,
		SweepInterval:    2 * time.Second,
		StreakKillAt:     5,
		ClanCreateCost:   10,
		ClanNameMax:      30,
		NameMax:          20,
		HeckleMax:        100,
		HeckleFeedSize:   3,
		ChallengeReward:  5,
		RevengeChallenge: 3,
		StreakChallenge:  5,
	}
}

// =============================================================================
// CLAN BATTLE CONFIGURATION
// =============================================================================

// BattleConfig holds clan battle pacing and scoring settings.
type BattleConfig struct {
	MaxRounds   int           // Series length cap (best-of-MaxRounds)
	RoundsToWin int           // Round wins that end the series early
	RoundDelay  time.Duration // Pause between rounds for client animation pacing
}

// DefaultBattle returns the default clan battle configuration.
func DefaultBattle() BattleConfig {
	return BattleConfig{
		MaxRounds:   3,
		RoundsToWin: 2,
		RoundDelay:  4 * time.Second,
	}
}

// BattleFromEnv returns battle configuration with environment variable overrides.
func BattleFromEnv() BattleConfig {
	cfg := DefaultBattle()

	if d := getEnvInt("BATTLE_ROUND_DELAY_MS", 0); d > 0 {
		cfg.RoundDelay = time.Duration(d) * time.Millisecond
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int
	CORSOrigins []string
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port: 3000,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}

	return cfg
}

// =============================================================================
// REDIS CONFIGURATION
// =============================================================================

// RedisConfig holds persistence store connection settings.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
}

// DefaultRedis returns sensible defaults for the Redis store.
func DefaultRedis() RedisConfig {
	return RedisConfig{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// RedisFromEnv returns Redis configuration with environment variable overrides.
func RedisFromEnv() RedisConfig {
	cfg := DefaultRedis()

	if u := os.Getenv("REDIS_URL"); u != "" {
		cfg.URL = u
	}
	if p := getEnvInt("REDIS_POOL_SIZE", 0); p > 0 {
		cfg.PoolSize = p
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Game   GameConfig
	Battle BattleConfig
	Server ServerConfig
	Redis  RedisConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Game:   DefaultGame(),
		Battle: BattleFromEnv(),
		Server: ServerFromEnv(),
		Redis:  RedisFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
