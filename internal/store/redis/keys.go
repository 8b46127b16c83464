package redis

import "fmt"

// Key prefix for all arena data
const keyPrefix = "pit"

// playerKey returns the Redis key for a PlayerRecord
func playerKey(id string) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// leaderboardKey returns the Redis key for the all-time points ZSET
func leaderboardKey() string {
	return fmt.Sprintf("%s:leaderboard", keyPrefix)
}

// clanKey returns the Redis key for a Clan
func clanKey(name string) string {
	return fmt.Sprintf("%s:clan:%s", keyPrefix, name)
}

// clanMembersKey returns the Redis key for the SET of member IDs of a clan
func clanMembersKey(name string) string {
	return fmt.Sprintf("%s:idx:clan_members:%s", keyPrefix, name)
}

// battleKey returns the Redis key for a ClanBattle
func battleKey(id string) string {
	return fmt.Sprintf("%s:battle:%s", keyPrefix, id)
}

// activeBattleKey returns the Redis key for the clan -> active battle id index
func activeBattleKey(clan string) string {
	return fmt.Sprintf("%s:idx:active_battle:%s", keyPrefix, clan)
}

// battleRoundsKey returns the Redis key for the LIST of round records of a battle
func battleRoundsKey(id string) string {
	return fmt.Sprintf("%s:battle_rounds:%s", keyPrefix, id)
}
