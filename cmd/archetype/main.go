package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/guminc/EvolvableArchetype/api"
	"github.com/guminc/EvolvableArchetype/metrics"
	"github.com/guminc/EvolvableArchetype/params"
	"github.com/guminc/EvolvableArchetype/state"
	"github.com/guminc/EvolvableArchetype/token"
)

var (
	version   string
	gitCommit string
	gitTag    string
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "Archetype",
		Usage:     "Evolvable NFT ledger service",
		Copyright: "2024 Scatter <https://www.scatter.art/>",
		Flags: []cli.Flag{
			dataDirFlag,
			configFlag,
			apiAddrFlag,
			apiCorsFlag,
			enableAPILogsFlag,
			enableMetricsFlag,
			pprofFlag,
			verbosityFlag,
			jsonLogsFlag,
		},
		Action: defaultAction,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	defer func() { log.Info("exited") }()

	initLogger(ctx)
	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}

	cfg, err := loadCollectionConfig(ctx.String(configFlag.Name))
	if err != nil {
		return err
	}

	dataDir := makeDataDir(ctx)

	mainDB := openMainDB(dataDir)
	defer func() { log.Info("closing main database..."); mainDB.Close() }()

	transferDB := openTransferDB(dataDir)
	defer func() { log.Info("closing transfer database..."); transferDB.Close() }()

	st := state.New(mainDB)
	pm := params.New(st)
	tok := token.New(st, pm)
	if err := initParams(tok, cfg); err != nil {
		return err
	}

	var strategy token.EvolutionStrategy
	if len(cfg.Evolution) > 0 {
		strategy = token.ThresholdStrategy(cfg.Evolution)
	}

	apiHandler := api.New(tok, transferDB, strategy, api.Options{
		AllowedOrigins:  ctx.String(apiCorsFlag.Name),
		PprofOn:         ctx.Bool(pprofFlag.Name),
		EnableReqLogger: ctx.Bool(enableAPILogsFlag.Name),
		EnableMetrics:   ctx.Bool(enableMetricsFlag.Name),
	})
	apiSrv, apiURL := startAPIServer(ctx, apiHandler)
	defer func() { log.Info("stopping API server..."); apiSrv.Shutdown(context.Background()) }()

	printStartupMessage(cfg, dataDir, apiURL)

	<-handleExitSignal()
	return nil
}

func printStartupMessage(cfg *CollectionConfig, dataDir string, apiURL string) {
	name := cfg.Name
	if name == "" {
		name = "unnamed"
	}
	fmt.Printf(`Starting %v
    Collection  [ %v ]
    Data dir    [ %v ]
    API portal  [ %v ]
`,
		fullVersion(),
		name,
		dataDir,
		apiURL)
}
