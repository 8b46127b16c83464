package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"pit-arena/internal/api"
	"pit-arena/internal/config"
	"pit-arena/internal/game"
	"pit-arena/internal/store"
	redisstore "pit-arena/internal/store/redis"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("💡 No .env file found, using environment variables only")
	} else {
		log.Println("✅ Loaded environment from .env")
	}

	log.Println("🕳️ ================================")
	log.Println("🕳️  THE PIT - ARENA SERVER")
	log.Println("🕳️ ================================")

	// Load centralized configuration (SSOT - Single Source of Truth)
	appConfig := config.Load()
	port := strconv.Itoa(appConfig.Server.Port)

	// The Redis store is a durability sink; the arena runs fine without it,
	// characters just stop surviving restarts.
	var st store.Store
	if os.Getenv("DISABLE_REDIS") != "true" {
		redisStore, err := redisstore.New(appConfig.Redis)
		if err != nil {
			log.Printf("⚠️ Redis unavailable, running without persistence: %v", err)
		} else {
			log.Printf("💾 Redis store connected: %s", appConfig.Redis.URL)
			st = redisStore
		}
	} else {
		log.Println("⚠️ Redis disabled, running without persistence")
	}

	engine := game.NewEngine(game.EngineConfig{
		Game:   appConfig.Game,
		Battle: appConfig.Battle,
		Store:  st,
	})

	// Observation hooks feed the Prometheus metrics.
	engine.SetHooks(game.Hooks{
		OnDuel: func(d game.DuelResult) {
			api.RecordDuel(d.Reason, d.Capture, d.Revenge)
		},
		OnBattleRound: func(game.BattleRound) {
			api.RecordBattleRound()
		},
		OnBattleComplete: func(battleID, winner string) {
			api.RecordBattleComplete()
		},
	})

	// Start debug server
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(api.DefaultObservabilityConfig()); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		}
	}

	server := api.NewServer(engine)

	engine.Start()
	log.Println("✅ Arena engine started")

	go func() {
		addr := ":" + port
		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	server.Stop()
	engine.Stop()
	if st != nil {
		if err := st.Close(); err != nil {
			log.Printf("⚠️ store close: %v", err)
		}
	}
	log.Println("👋 Goodbye!")
}
