package main

import (
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-isatty"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/guminc/EvolvableArchetype/archetype"
	"github.com/guminc/EvolvableArchetype/lvldb"
	"github.com/guminc/EvolvableArchetype/token"
	"github.com/guminc/EvolvableArchetype/transferdb"
)

func fatal(args ...interface{}) {
	var w io.Writer
	if runtime.GOOS == "windows" {
		// The SameFile check below doesn't work on Windows.
		// stdout is unlikely to get redirected though, so just print there.
		w = os.Stdout
	} else {
		outf, _ := os.Stdout.Stat()
		errf, _ := os.Stderr.Stat()
		if outf != nil && errf != nil && os.SameFile(outf, errf) {
			w = os.Stderr
		} else {
			w = io.MultiWriter(os.Stdout, os.Stderr)
		}
	}
	fmt.Fprint(w, "Fatal: ")
	fmt.Fprintln(w, args...)
	os.Exit(1)
}

func fatalf(format string, args ...interface{}) {
	fatal(fmt.Sprintf(format, args...))
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".archetype")
	}
	return ""
}

func initLogger(ctx *cli.Context) {
	level := log.FromLegacyLevel(ctx.Int(verbosityFlag.Name))
	var handler slog.Handler
	if ctx.Bool(jsonLogsFlag.Name) {
		handler = log.JSONHandlerWithLevel(os.Stderr, level)
	} else {
		useColor := isatty.IsTerminal(os.Stderr.Fd())
		handler = log.NewTerminalHandlerWithLevel(os.Stderr, level, useColor)
	}
	log.SetDefault(log.NewLogger(handler))
}

func makeDataDir(ctx *cli.Context) string {
	dir := ctx.String(dataDirFlag.Name)
	if dir == "" {
		fatalf("unable to infer default data dir, use -%s to specify one", dataDirFlag.Name)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		fatalf("create data dir at '%v': %v", dir, err)
	}
	return dir
}

func openMainDB(dataDir string) *lvldb.LevelDB {
	dir := filepath.Join(dataDir, "ledger.db")
	db, err := lvldb.New(dir, lvldb.Options{})
	if err != nil {
		fatalf("open ledger database at '%v': %v", dir, err)
	}
	return db
}

func openTransferDB(dataDir string) *transferdb.TransferDB {
	dir := filepath.Join(dataDir, "transfer.db")
	db, err := transferdb.New(dir)
	if err != nil {
		fatalf("open transfer database at '%v': %v", dir, err)
	}
	return db
}

// initParams seeds deployment params on first run. Values already
// persisted win over the config file.
func initParams(tok *token.Token, cfg *CollectionConfig) error {
	epoch, err := tok.GetParam(archetype.KeyDeployEpoch)
	if err != nil {
		return err
	}
	if epoch != 0 {
		return nil // already initialized
	}

	if cfg.DeployEpoch != 0 {
		epoch = cfg.DeployEpoch
	} else {
		epoch = uint64(time.Now().Unix())
	}
	if err := tok.SetParam(archetype.KeyDeployEpoch, new(big.Int).SetUint64(epoch)); err != nil {
		return err
	}

	minStake := archetype.InitialMinStakingTime
	if cfg.MinStakingTime != 0 {
		minStake = new(big.Int).SetUint64(cfg.MinStakingTime)
	}
	if err := tok.SetParam(archetype.KeyMinStakingTime, minStake); err != nil {
		return err
	}
	if cfg.AutoStakeMint != 0 {
		if err := tok.SetParam(archetype.KeyAutoStakeMint, new(big.Int).SetUint64(cfg.AutoStakeMint)); err != nil {
			return err
		}
	}
	if cfg.AutoStakeTx != 0 {
		if err := tok.SetParam(archetype.KeyAutoStakeTx, new(big.Int).SetUint64(cfg.AutoStakeTx)); err != nil {
			return err
		}
	}
	log.Info("initialized deployment params", "deployEpoch", epoch, "minStakingTime", minStake)
	return nil
}

func startAPIServer(ctx *cli.Context, handler http.HandlerFunc) (*http.Server, string) {
	addr := ctx.String(apiAddrFlag.Name)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		fatalf("listen API addr [%v]: %v", addr, err)
	}
	srv := &http.Server{Handler: handler}
	go func() {
		srv.Serve(listener)
	}()
	return srv, "http://" + listener.Addr().String() + "/"
}

func handleExitSignal() <-chan os.Signal {
	exitSignalCh := make(chan os.Signal, 1)
	signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)
	return exitSignalCh
}
