package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/tiglabs/cellgraph/config"
	graphd "github.com/tiglabs/cellgraph/server"
	"github.com/tiglabs/cellgraph/util/log"
	"github.com/tiglabs/cellgraph/util/server"
)

const (
	flagConfig = "config"
)

var (
	app = &cli.App{
		Name:        "graphd",
		Usage:       "graphd [command]",
		Description: "Cellgraph property graph server.",
	}
	startCmd = &cli.Command{
		Name:        "start",
		Usage:       "graphd start",
		Description: "Start the graphd server",
		Action: func(cmdCtx *cli.Context) error {
			// set go flag values
			server.SetGoFlagVals(cmdCtx)

			conf := config.NewConfig(cmdCtx.String(flagConfig))

			// init log
			log.InitFileLog(conf.LogCfg.LogPath, conf.ModuleCfg.Name, conf.LogCfg.Level)

			s := graphd.NewServer(conf)
			if err := s.Start(); err != nil {
				fmt.Printf("Graphd server start error: %s", err)
				return err
			}

			server.WaitShutdown(s.Close)
			return nil
		},
	}
)

func init() {
	server.AppendFlags(startCmd, &cli.StringFlag{
		Name:    flagConfig,
		Aliases: []string{"c"},
		Usage:   "server config file path",
	})

	// add go flags to start command
	server.AddGoFlags(startCmd)
	app.Commands = append(app.Commands, startCmd)
	app.Commands = append(app.Commands, server.VersionCommand())
}

func main() {
	// Needed to avoid "logging before flag.Parse" error with glog.
	server.SupressGlogWarnings()
	if err := app.Run(os.Args); err != nil {
		fmt.Printf("Run graphd server error: %s", err)
		os.Exit(-1)
	}
}
