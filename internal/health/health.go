// Package health runs preflight checks against the transcription
// environment: external binaries, model weights, and the optional database.
// The doctor command evaluates them before any media is touched, so a
// missing ffmpeg fails in seconds instead of mid-job.
package health

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// checkTimeout bounds a single check.
const checkTimeout = 5 * time.Second

// Check is a named probe of one dependency. Run must respect context
// cancellation and return nil when the dependency is usable.
type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

// Result is the outcome of one evaluated check.
type Result struct {
	Name string
	Err  error
}

// Run evaluates the checks sequentially, each under a [checkTimeout]
// deadline derived from ctx, and returns one result per check.
func Run(ctx context.Context, checks ...Check) []Result {
	results := make([]Result, 0, len(checks))
	for _, c := range checks {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := c.Run(cctx)
		cancel()
		results = append(results, Result{Name: c.Name, Err: err})
	}
	return results
}

// OK reports whether every result passed.
func OK(results []Result) bool {
	for _, r := range results {
		if r.Err != nil {
			return false
		}
	}
	return true
}

// Binary checks that an executable can be resolved, either as an absolute
// path or on PATH.
func Binary(name, bin string) Check {
	return Check{Name: name, Run: func(context.Context) error {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("executable %q not found: %w", bin, err)
		}
		return nil
	}}
}

// File checks that a regular file exists at path.
func File(name, path string) Check {
	return Check{Name: name, Run: func(context.Context) error {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fmt.Errorf("%q is a directory", path)
		}
		return nil
	}}
}

// Postgres checks that the database behind dsn accepts connections.
func Postgres(name, dsn string) Check {
	return Check{Name: name, Run: func(ctx context.Context) error {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return err
		}
		defer pool.Close()
		return pool.Ping(ctx)
	}}
}
