// Command labcheck runs one reconciliation pass of the lab-tests storefront against
// its backend catalog and exits non-zero when anything disagrees.
//
// Usage:
//
//	labcheck                 # target from LABTESTS_BASE_URL, report to S3, mail via Resend
//	labcheck --test          # fixture storefront, local report, captured mail
//	labcheck --headed --no-email
//
// Exit status: 0 pass, 1 mismatch or bad backend data, 2 bad configuration,
// 3 storefront or backend unreachable, 4 internal error.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kuitang/labtests-e2e/internal/config"
	"github.com/kuitang/labtests-e2e/internal/errs"
	"github.com/kuitang/labtests-e2e/internal/obs"
	"github.com/kuitang/labtests-e2e/internal/runner"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags, err := config.ParseFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return errs.ExitCode(errs.Wrap(errs.InvalidConfig, "labcheck: parse flags", err))
	}

	obs.Init()
	log := obs.Pkg("labcheck")

	cfg, err := config.LoadConfig(flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return errs.ExitCode(errs.Wrap(errs.InvalidConfig, "labcheck: load config", err))
	}
	cfg.PrintStartupSummary()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := runner.NewDeps(ctx, cfg, os.Getenv("LABTESTS_REPORT_DIR"))
	if err != nil {
		log.Error("deps_failed", "error", err)
		return errs.ExitCode(err)
	}

	report, err := runner.Run(ctx, cfg, deps)
	if report.Result != nil {
		fmt.Fprintf(os.Stderr, "\n%s\n", report.Result.Summary())
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAIL run %s\n%v\n", report.RunID, err)
		return errs.ExitCode(err)
	}
	fmt.Fprintf(os.Stderr, "PASS run %s\n", report.RunID)
	return 0
}
