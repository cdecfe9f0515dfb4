package cmd

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/face-auth/internal/config"
	"github.com/kozaktomas/face-auth/internal/constants"
	"github.com/kozaktomas/face-auth/internal/registration"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll FILE",
	Short: "Register many identities from a JSON or YAML file",
	Long: `Register every identity listed in FILE.

FILE holds a list of registrations with the same fields as POST /register:
name, email, faceEmbedding, age and gender. Files ending in .yaml or .yml are
read as YAML, anything else as JSON. Entries are independent: a failing entry
is reported and the rest are still registered.`,
	Example: `  # Enroll with default concurrency (5 workers)
  face-auth enroll users.json

  # Stop at the first failure
  face-auth enroll users.yaml --concurrency 10 --fail-fast`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().Int("concurrency", constants.DefaultConcurrency, "Number of parallel workers")
	enrollCmd.Flags().Bool("fail-fast", false, "Stop at the first failed entry")
	enrollCmd.Flags().Bool("no-progress", false, "Disable the progress bar")
}

// enrollFailure is one entry that could not be registered.
type enrollFailure struct {
	Index int
	Name  string
	Err   error
}

// readEnrollFile decodes the list of registrations in path.
func readEnrollFile(path string) ([]registration.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var reqs []registration.Request
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &reqs)
	default:
		err = json.Unmarshal(data, &reqs)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return reqs, nil
}

// enroll registers reqs with up to concurrency workers and calls progress after each entry.
func enroll(ctx context.Context, r *registration.Registrar, reqs []registration.Request, concurrency int, failFast bool, progress func()) (int, []enrollFailure, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))

	var (
		mu       sync.Mutex
		failures []enrollFailure
		ok       int
	)

	for i, req := range reqs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			_, err := r.Register(gctx, req)

			mu.Lock()
			if err != nil {
				failures = append(failures, enrollFailure{Index: i, Name: req.Name, Err: err})
			} else {
				ok++
			}
			mu.Unlock()

			if progress != nil {
				progress()
			}
			if err != nil && failFast {
				return fmt.Errorf("entry %d (%s): %w", i, req.Name, err)
			}
			return nil
		})
	}

	err := g.Wait()
	slices.SortFunc(failures, func(a, b enrollFailure) int { return cmp.Compare(a.Index, b.Index) })
	return ok, failures, err
}

func runEnroll(cmd *cobra.Command, args []string) error {
	concurrency := mustGetInt(cmd, "concurrency")
	failFast := mustGetBool(cmd, "fail-fast")
	noProgress := mustGetBool(cmd, "no-progress")

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Store.Backend == config.BackendMemory {
		return errors.New("the memory backend does not persist; set STORE_BACKEND")
	}

	reqs, err := readEnrollFile(args[0])
	if err != nil {
		return err
	}
	if len(reqs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to enroll")
		return nil
	}

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	var progress func()
	if !noProgress {
		bar := progressbar.NewOptions(len(reqs),
			progressbar.OptionSetDescription("Enrolling"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("identities"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
		progress = func() { bar.Add(1) }
		defer bar.Finish()
	}

	ok, failures, err := enroll(ctx, registration.NewRegistrar(store, logger), reqs, concurrency, failFast, progress)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nEnrolled %d of %d identities\n", ok, len(reqs))
	for _, f := range failures {
		fmt.Fprintf(out, "  entry %d (%s): %v\n", f.Index, f.Name, f.Err)
	}
	if err != nil {
		return err
	}
	if len(failures) > 0 {
		return fmt.Errorf("%d entries failed", len(failures))
	}
	return nil
}
