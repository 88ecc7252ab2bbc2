package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sebastiankruger/fruitsort-simulator/internal/config"
	"github.com/sebastiankruger/fruitsort-simulator/internal/stages"
)

var CLI struct {
	Stages  string `short:"s" help:"Stage file path (overrides STAGE_FILE)"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Run struct{} `cmd:"" default:"1" help:"Run the simulated sorting cell"`

	Validate struct {
		File string `short:"f" help:"Stage file to validate (defaults to the configured stage file)"`
	} `cmd:"" help:"Parse a stage file and print the resulting table"`

	WriteStages struct {
		Input string `arg:"" help:"Stage configuration, e.g. \"2, (1,G1,1,O1,5), (2,G2,0,O2,3)\""`
	} `cmd:"" name:"write-stages" help:"Normalise a stage configuration and write the stage file"`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("fruitsort"),
		kong.Description("Fruit sorting cell simulator and controller"),
	)

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if CLI.Stages != "" {
		cfg.StageFile = CLI.Stages
	}
	setLogLevel(cfg.LogLevel, CLI.Verbose)

	switch ctx.Command() {
	case "run":
		runCell(cfg)
	case "validate":
		path := cfg.StageFile
		if CLI.Validate.File != "" {
			path = CLI.Validate.File
		}
		if err := runValidate(path); err != nil {
			log.Error().Err(err).Str("path", path).Msg("Stage file is invalid")
			os.Exit(1)
		}
	case "write-stages <input>":
		written, err := stages.WriteFile(cfg.StageFile, CLI.WriteStages.Input)
		if err != nil {
			log.Error().Err(err).Msg("Failed to write stage file")
			os.Exit(1)
		}
		log.Info().Str("path", cfg.StageFile).Str("stages", written).Msg("Stage file written")
	default:
		log.Fatal().Str("command", ctx.Command()).Msg("Unknown command")
	}
}

func setLogLevel(level string, verbose bool) {
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		log.Warn().Str("level", level).Msg("Unknown log level, using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func runValidate(path string) error {
	table, err := stages.NewLoader(path).Load()
	if err != nil {
		return err
	}
	fmt.Println(table.String())
	return nil
}
