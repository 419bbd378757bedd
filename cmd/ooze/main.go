package main

import (
	"fmt"
	"os"

	"github.com/TheNullicorn/ooze"
	"github.com/urfave/cli/v2"
)

func main() {
	var log Logger

	app := &cli.App{
		Name:  "ooze",
		Usage: "converts Minecraft region worlds to the Ooze format",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "enable debug output"},
		},
		Before: func(c *cli.Context) error {
			log.Debugging = c.Bool("debug")
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "convert",
				Usage:     "pack chunks from a region directory into a .ooze file",
				ArgsUsage: "<region-dir> <out.ooze>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "min-x", Usage: "lowest chunk X to include"},
					&cli.IntFlag{Name: "min-z", Usage: "lowest chunk Z to include"},
					&cli.IntFlag{Name: "width", Value: 32, Usage: "area width in chunks"},
					&cli.IntFlag{Name: "depth", Value: 32, Usage: "area depth in chunks"},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return cli.Exit("need a region directory and an output path", 1)
					}
					return convert(c, log)
				},
			},
			{
				Name:      "info",
				Usage:     "print a summary of a .ooze file",
				ArgsUsage: "<file.ooze>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("need a .ooze file", 1)
					}
					return info(c, log)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func convert(c *cli.Context, log Logger) error {
	regionDir := c.Args().Get(0)
	outPath := c.Args().Get(1)

	loader, err := ooze.NewRegionDirectoryLoader(regionDir)
	if err != nil {
		return err
	}
	defer loader.Close()

	log.Debug("scanning", regionDir)
	level, err := ooze.NewLevelBuilder(loader).
		AddRect(c.Int("min-x"), c.Int("min-z"), c.Int("width"), c.Int("depth")).
		Build()
	if err != nil {
		return err
	}
	log.Info("loaded", level.ChunkCount(), "chunks")

	out, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if err := ooze.WriteLevel(level, out); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	log.Info("wrote", outPath)
	return nil
}

func info(c *cli.Context, log Logger) error {
	file, err := os.Open(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer file.Close()

	level, err := ooze.ReadLevel(file)
	if err != nil {
		return err
	}

	log.Info(fmt.Sprintf("%d chunks, %dx%d area from (%d, %d)",
		level.ChunkCount(), level.Width(), level.Depth(),
		level.LowestChunkX(), level.LowestChunkZ()))
	log.Info(len(level.Entities()), "entities,", len(level.BlockEntities()), "block entities")
	if len(level.Custom()) > 0 {
		log.Info(len(level.Custom()), "custom storage entries")
	}
	return nil
}
