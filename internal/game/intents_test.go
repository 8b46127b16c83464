package game

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"
)

// TestIdentifyMintsCharacter tests the fresh-character path and the welcome push
func TestIdentifyMintsCharacter(t *testing.T) {
	te := newTestEngine(t)
	te.rng.QueueIntn(42, 7) // draw number, then character image offset

	if err := te.engine.Identify("c1", "", "Rustler"); err != nil {
		t.Fatalf("Identify: %v", err)
	}

	s := te.engine.registry.Get("c1")
	if s == nil {
		t.Fatal("Session should be registered")
	}
	if s.Record.Name != "Rustler" {
		t.Errorf("Expected name 'Rustler', got %q", s.Record.Name)
	}
	if s.Record.DrawNumber != 42 {
		t.Errorf("Expected draw number 42, got %d", s.Record.DrawNumber)
	}
	if s.Record.CharacterImage != 8 {
		t.Errorf("Expected character image 8, got %d", s.Record.CharacterImage)
	}
	if s.Record.ID == "" {
		t.Error("A fresh character should get a persistent ID")
	}

	if len(te.pusher.eventsFor("c1", EventWelcome)) != 1 {
		t.Error("Identify should push exactly one welcome snapshot")
	}
}

// TestIdentifyLoadsExistingCharacter tests the store round trip
func TestIdentifyLoadsExistingCharacter(t *testing.T) {
	te := newTestEngine(t)

	if err := te.engine.Identify("c1", "", "Original"); err != nil {
		t.Fatalf("Identify: %v", err)
	}
	playerID := te.engine.registry.Get("c1").Record.ID
	te.engine.registry.Get("c1").Record.Points = 9

	// Flush and reconnect.
	te.engine.Disconnect("c1")
	waitForUpsert(t, te, playerID, 9)

	if err := te.engine.Identify("c2", playerID, ""); err != nil {
		t.Fatalf("Identify reconnect: %v", err)
	}

	s := te.engine.registry.Get("c2")
	if s.Record.Points != 9 {
		t.Errorf("Expected 9 points restored from the store, got %d", s.Record.Points)
	}
	if s.Record.Name != "Original" {
		t.Errorf("Expected restored name, got %q", s.Record.Name)
	}
}

// TestChangeNameValidation tests trimming, truncation and the empty rejection
func TestChangeNameValidation(t *testing.T) {
	te := newTestEngine(t)
	te.addFighter("c1", "p1", "Ana", 5, 40)

	if err := te.engine.ChangeName("c1", "  "); err == nil {
		t.Error("Blank name should be rejected")
	}

	long := strings.Repeat("x", 30)
	if err := te.engine.ChangeName("c1", long); err != nil {
		t.Fatalf("ChangeName: %v", err)
	}
	if got := te.engine.registry.Get("c1").Record.Name; len(got) != 20 {
		t.Errorf("Expected name truncated to 20 bytes, got %d", len(got))
	}
}

// TestSwitchCharacterBlockedInPit tests the reroll guard
func TestSwitchCharacterBlockedInPit(t *testing.T) {
	te := newTestEngine(t)
	te.addFighter("c1", "p1", "Ana", 5, 40)
	te.enterPit(t, "c1")

	err := te.engine.SwitchCharacter("c1")
	var rule *RuleError
	if !errors.As(err, &rule) {
		t.Fatalf("Expected a rule error, got %v", err)
	}
}

// TestSwitchCharacterRerolls tests that both the image and draw number change
func TestSwitchCharacterRerolls(t *testing.T) {
	te := newTestEngine(t)
	te.addFighter("c1", "p1", "Ana", 5, 40)
	te.rng.QueueIntn(3, 77) // image offset, then draw number

	if err := te.engine.SwitchCharacter("c1"); err != nil {
		t.Fatalf("SwitchCharacter: %v", err)
	}

	rec := te.engine.registry.Get("c1").Record
	if rec.CharacterImage != 4 {
		t.Errorf("Expected image 4, got %d", rec.CharacterImage)
	}
	if rec.DrawNumber != 77 {
		t.Errorf("Expected draw number 77, got %d", rec.DrawNumber)
	}
}

// TestAttackValidation tests the attack preconditions
func TestAttackValidation(t *testing.T) {
	te := newTestEngine(t)
	te.addFighter("c1", "p1", "Ana", 5, 40)
	te.addFighter("c2", "p2", "Bo", 5, 60)
	te.enterPit(t, "c1")

	tests := []struct {
		name   string
		conn   string
		target string
		atype  AttackType
	}{
		{"unknown connection", "nope", "c1", AttackMelee},
		{"attacker not in pit", "c2", "c1", AttackMelee},
		{"invalid attack type", "c1", "c2", AttackType("laser")},
		{"self attack", "c1", "c1", AttackMelee},
		{"target not in pit", "c1", "c2", AttackMelee},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := te.engine.Attack(tt.conn, tt.target, tt.atype); err == nil {
				t.Error("Expected a rule error")
			}
		})
	}
}

// TestHeckleGating tests that only a fresh winner may heckle, exactly once
func TestHeckleGating(t *testing.T) {
	te := newTestEngine(t)
	s := te.addFighter("c1", "p1", "Ana", 5, 40)

	if err := te.engine.SendHeckle("c1", "anyone?"); err == nil {
		t.Error("Heckling without a win should be rejected")
	}

	s.CanHeckle = true
	if err := te.engine.SendHeckle("c1", "too easy"); err != nil {
		t.Fatalf("SendHeckle: %v", err)
	}

	recent := te.engine.heckles.Recent()
	if len(recent) != 1 || recent[0].Message != "too easy" {
		t.Fatalf("Expected the heckle in the feed, got %+v", recent)
	}

	if err := te.engine.SendHeckle("c1", "again"); err == nil {
		t.Error("The heckle right should be consumed by use")
	}
}

// TestHeckleTruncated tests the message length cap
func TestHeckleTruncated(t *testing.T) {
	te := newTestEngine(t)
	s := te.addFighter("c1", "p1", "Ana", 5, 40)
	s.CanHeckle = true

	if err := te.engine.SendHeckle("c1", strings.Repeat("ha", 100)); err != nil {
		t.Fatalf("SendHeckle: %v", err)
	}
	if got := len(te.engine.heckles.Recent()[0].Message); got != 100 {
		t.Errorf("Expected heckle truncated to 100 bytes, got %d", got)
	}
}

// TestClaimChallenge tests thresholds, payout and the once-per-day guard
func TestClaimChallenge(t *testing.T) {
	te := newTestEngine(t)
	s := te.addFighter("c1", "p1", "Ana", 5, 40)

	if err := te.engine.ClaimChallenge("c1", ChallengeRevenge); err == nil {
		t.Error("Claim below the threshold should be rejected")
	}

	s.Record.Challenges.Date = challengeDay(te.clock.Now())
	s.Record.Challenges.RevengeKills = 3

	if err := te.engine.ClaimChallenge("c1", ChallengeRevenge); err != nil {
		t.Fatalf("ClaimChallenge: %v", err)
	}
	if s.Record.Points != 10 {
		t.Errorf("Expected 5+5 points after payout, got %d", s.Record.Points)
	}

	if err := te.engine.ClaimChallenge("c1", ChallengeRevenge); err == nil {
		t.Error("Second claim on the same day should be rejected")
	}

	if err := te.engine.ClaimChallenge("c1", ChallengeType("bogus")); err == nil {
		t.Error("Unknown challenge should be rejected")
	}
}

// TestRecruitPlayer tests absorbing a broke clanless character
func TestRecruitPlayer(t *testing.T) {
	te := newTestEngine(t)
	recruiter := te.addFighter("c1", "p1", "Ana", 5, 40)
	recruiter.Record.Clan = "Wolves"
	target := te.addFighter("c2", "p2", "Bo", 0, 60)

	if err := te.engine.RecruitPlayer("c1", "p2"); err != nil {
		t.Fatalf("RecruitPlayer: %v", err)
	}
	if target.Record.Clan != "Wolves" || target.Record.OwnerID != "p1" {
		t.Errorf("Expected Bo absorbed by Wolves/p1, got %q/%q", target.Record.Clan, target.Record.OwnerID)
	}
}

// TestRecruitPlayerRejections tests the recruit preconditions
func TestRecruitPlayerRejections(t *testing.T) {
	te := newTestEngine(t)
	recruiter := te.addFighter("c1", "p1", "Ana", 5, 40)
	rich := te.addFighter("c2", "p2", "Bo", 3, 60)
	clanned := te.addFighter("c3", "p3", "Cy", 0, 70)
	clanned.Record.Clan = "Bears"

	if err := te.engine.RecruitPlayer("c1", "p2"); err == nil {
		t.Error("Recruiting without a clan should be rejected")
	}

	recruiter.Record.Clan = "Wolves"
	if err := te.engine.RecruitPlayer("c1", "p2"); err == nil {
		t.Error("Recruiting a target with points should be rejected")
	}
	if err := te.engine.RecruitPlayer("c1", "p3"); err == nil {
		t.Error("Recruiting a clanned target should be rejected")
	}
	if err := te.engine.RecruitPlayer("c1", "p1"); err == nil {
		t.Error("Self-recruitment should be rejected")
	}
	_ = rich
}

// TestTruncateKeepsRunesWhole tests that the length caps cut on rune
// boundaries, never mid-character
func TestTruncateKeepsRunesWhole(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"ascii clipped", "abcdef", 4, "abcd"},
		{"short untouched", "abc", 4, "abc"},
		{"multibyte at boundary", "ééé", 5, "éé"}, // é is 2 bytes
		{"multibyte aligned", "ééé", 4, "éé"},
		{"emoji clipped", "a🔥b", 3, "a"}, // 🔥 is 4 bytes
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.max)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate(%q, %d) produced invalid UTF-8", tt.in, tt.max)
			}
		})
	}
}

// TestChangeNameMultibyte tests the name cap against a multibyte name
func TestChangeNameMultibyte(t *testing.T) {
	te := newTestEngine(t)
	te.addFighter("c1", "p1", "Ana", 5, 40)

	// 11 two-byte runes: 22 bytes against a 20-byte cap.
	if err := te.engine.ChangeName("c1", strings.Repeat("ö", 11)); err != nil {
		t.Fatalf("ChangeName: %v", err)
	}
	got := te.engine.registry.Get("c1").Record.Name
	if got != strings.Repeat("ö", 10) {
		t.Errorf("Expected 10 whole runes, got %q", got)
	}
	if !utf8.ValidString(got) {
		t.Errorf("Name %q is not valid UTF-8", got)
	}
}

// TestConcurrentIdentifyAndReroll tests that character minting and rerolls
// interleave safely across connections
func TestConcurrentIdentifyAndReroll(t *testing.T) {
	te := newTestEngine(t)
	te.addFighter("c0", "p0", "Ana", 5, 10)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		connID := fmt.Sprintf("c%d", i+1)
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := te.engine.Identify(connID, "", ""); err != nil {
				t.Errorf("Identify(%s): %v", connID, err)
			}
		}()
		go func() {
			defer wg.Done()
			if err := te.engine.SwitchCharacter("c0"); err != nil {
				t.Errorf("SwitchCharacter: %v", err)
			}
		}()
	}
	wg.Wait()

	online, _ := te.engine.Counts()
	if online != 9 {
		t.Errorf("Expected 9 sessions online, got %d", online)
	}
}
