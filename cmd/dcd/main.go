package main

import (
	"fmt"
	"os"

	"github.com/ark-network/dcd/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
)

var (
	version = "dev"

	cfg *config.Config
)

func main() {
	app := cli.NewApp()

	app.Version = version
	app.Name = "dcd"
	app.Usage = "manage dual currency deposit contracts on Liquid"
	app.Commands = append(
		app.Commands,
		&makerCommand,
		&takerCommand,
		&helperCommand,
		&dexCommand,
	)
	app.Flags = []cli.Flag{
		datadirFlag,
		networkFlag,
	}

	app.Before = func(ctx *cli.Context) error {
		viper.Set(config.Datadir, ctx.String(datadirFlag.Name))
		if ctx.IsSet(networkFlag.Name) {
			viper.Set(config.Network, ctx.String(networkFlag.Name))
		}

		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load .env file: %s", err)
		}

		c, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("invalid config: %s", err)
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid config: %s", err)
		}
		c.InitLogger()

		if _, err := c.Registry(); err != nil {
			return fmt.Errorf("failed to open registry: %s", err)
		}

		cfg = c
		return nil
	}
	app.After = func(_ *cli.Context) error {
		if cfg != nil {
			cfg.Close()
		}
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Println(fmt.Errorf("error: %v", err))
		os.Exit(1)
	}
}
