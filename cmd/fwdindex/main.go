// Command fwdindex builds a forward index from a binary collection and
// persists it as a snapshot, so repeated reordering runs over the same
// collection can skip the expensive inversion step.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ot/ds2i/internal/forward"
	"github.com/ot/ds2i/pkg/config"
	apperrors "github.com/ot/ds2i/pkg/errors"
	"github.com/ot/ds2i/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	input := flag.String("collection", "", "input collection basename")
	minLen := flag.Int("min-len", -1, "minimum posting-list length for the forward index")
	snapshot := flag.String("snapshot", "", "snapshot output path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(apperrors.ExitCode(err))
	}
	if *input != "" {
		cfg.Collection.Input = *input
	}
	if *minLen >= 0 {
		cfg.Forward.MinListLength = *minLen
	}
	if *snapshot != "" {
		cfg.Forward.SnapshotPath = *snapshot
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if cfg.Collection.Input == "" || cfg.Forward.SnapshotPath == "" {
		slog.Error("collection basename and snapshot path are required")
		os.Exit(apperrors.ExitConfigInvalid)
	}

	start := time.Now()
	fwd, err := forward.FromCollection(cfg.Collection.Input, cfg.Forward.MinListLength)
	if err != nil {
		slog.Error("forward index build failed", "error", err)
		os.Exit(apperrors.ExitCode(err))
	}
	slog.Info("forward index built",
		"documents", fwd.Size(),
		"terms", fwd.TermCount(),
		"min_list_length", cfg.Forward.MinListLength,
		"elapsed", time.Since(start),
	)

	if err := fwd.WriteSnapshot(cfg.Forward.SnapshotPath); err != nil {
		slog.Error("snapshot write failed", "error", err)
		os.Exit(apperrors.ExitCode(err))
	}
	slog.Info("forward index snapshot written", "path", cfg.Forward.SnapshotPath)
}
