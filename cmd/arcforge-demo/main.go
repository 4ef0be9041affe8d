// Command arcforge-demo boots a single-game Arcforge server for local
// testing: pick tictactoe or vectorrace with -game, point a client at the
// configured host/port, and play.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/arcforge/arcforge/config"
	"github.com/arcforge/arcforge/games/tictactoe"
	"github.com/arcforge/arcforge/games/vectorrace"
	"github.com/arcforge/arcforge/internal/server"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	game := flag.String("game", "tictactoe", "which GameLogic to serve: tictactoe or vectorrace")
	flag.Parse()

	cfg := config.LoadFromEnv()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var run func(context.Context, *config.ServerConfig) error
	switch *game {
	case "tictactoe":
		run = runTicTacToe
	case "vectorrace":
		run = runVectorRace
	default:
		log.Fatalf("arcforge-demo: unknown -game %q (want tictactoe or vectorrace)", *game)
	}

	log.Printf("=================================")
	log.Printf("  Arcforge Demo Server")
	log.Printf("=================================")
	log.Printf("  Game: %s", *game)
	log.Printf("  Host: %s", cfg.Host)
	log.Printf("  Port: %d", cfg.Port)
	log.Printf("=================================")

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("arcforge-demo: %v", err)
	}
}

func runTicTacToe(ctx context.Context, cfg *config.ServerConfig) error {
	srv, err := server.NewBuilder[struct{}, tictactoe.State, tictactoe.Move, tictactoe.Event](
		tictactoe.Logic{}, struct{}{},
	).WithConfig(cfg).Build()
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

func runVectorRace(ctx context.Context, cfg *config.ServerConfig) error {
	srv, err := server.NewBuilder[vectorrace.Config, vectorrace.State, vectorrace.Input, vectorrace.Event](
		vectorrace.Logic{}, vectorrace.Config{},
	).WithConfig(cfg).Build()
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
