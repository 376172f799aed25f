package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/justinabrahms/deskchess/internal/config"
	"github.com/justinabrahms/deskchess/internal/game"
)

func main() {
	var (
		configPath string
		loadPath   string
		fen        string
		flip       bool
		ascii      bool
		noColor    bool
	)
	flag.StringVar(&configPath, "config", "", "Path to a config file")
	flag.StringVar(&loadPath, "load", "", "Resume a saved game")
	flag.StringVar(&fen, "fen", "", "Start from this position")
	flag.BoolVar(&flip, "flip", false, "Draw the board from Black's side")
	flag.BoolVar(&ascii, "ascii", false, "Draw pieces as letters")
	flag.BoolVar(&noColor, "no-color", false, "Disable colours")
	flag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	// the board is the interface; only problems are logged
	level := cfg.Development.Level()
	if level < zerolog.WarnLevel && !cfg.Development.Debug {
		level = zerolog.WarnLevel
	}
	logger := log.Logger.Level(level)

	cli := &CLI{
		opts: game.Options{
			WhiteName:      cfg.Game.WhiteName,
			BlackName:      cfg.Game.BlackName,
			ShowValidMoves: cfg.Game.ShowValidMoves,
			TimeControl: game.TimeControl{
				Initial:   cfg.Game.ClockInitial,
				Increment: cfg.Game.ClockIncrement,
			},
			FEN:    fen,
			Logger: &logger,
		},
		out:     os.Stdout,
		flip:    flip,
		ascii:   ascii,
		noColor: noColor || color.NoColor,
	}
	if err := cli.Start(loadPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := cli.Run(os.Stdin); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
