package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hazukari/sc3kit/internal/config"
	"github.com/hazukari/sc3kit/internal/db"
	"github.com/hazukari/sc3kit/internal/executor"
	"github.com/hazukari/sc3kit/internal/forge"
	"github.com/hazukari/sc3kit/internal/gitrepo"
	"github.com/hazukari/sc3kit/internal/observability"
	"github.com/hazukari/sc3kit/internal/pipeline"
	"github.com/hazukari/sc3kit/internal/registry"
	"github.com/hazukari/sc3kit/internal/user"
	"github.com/hazukari/sc3kit/internal/workflow"
)

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Plan, run, or dispatch the release workflow",
	Long:  "Plan, run, or dispatch the release workflow declared in release.yml.",
}

// loadWorkflowFile reads the workflow named by --workflow, falling back to
// the settings file's configured path.
func loadWorkflowFile(cmd *cobra.Command) (*workflow.File, config.Settings, error) {
	cfg, err := config.LoadSettings()
	if err != nil {
		return nil, config.Settings{}, err
	}
	path, _ := cmd.Flags().GetString("workflow")
	if path == "" {
		path = cfg.Pipeline.WorkflowFile
	}
	wf, err := workflow.Load(path)
	if err != nil {
		return nil, config.Settings{}, err
	}
	return wf, cfg, nil
}

// localPushEvent synthesizes the push event the current working tree's
// HEAD would have produced.
func localPushEvent(ctx context.Context, dir string) (workflow.Event, error) {
	head, err := gitrepo.Head(ctx, dir)
	if err != nil {
		return workflow.Event{}, err
	}
	branch, err := gitrepo.CurrentBranch(ctx, dir)
	if err != nil {
		return workflow.Event{}, err
	}
	actor := user.ActorName()
	if actor == "" {
		actor = head.Author
	}
	return workflow.Event{
		Kind:    workflow.EventPush,
		Ref:     "refs/heads/" + branch,
		SHA:     head.SHA,
		Message: head.Message,
		Actor:   actor,
	}, nil
}

var releasePlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what a run would do without executing anything",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		wf, _, err := loadWorkflowFile(cmd)
		if err != nil {
			return err
		}
		local, _ := cmd.Flags().GetBool("local")
		version, _ := cmd.Flags().GetString("version")

		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		ev, err := localPushEvent(cmd.Context(), wd)
		if err != nil {
			return err
		}
		if version != "" {
			ev.Kind = workflow.EventDispatch
			ev.Version = version
		}

		p := pipeline.New(wf, nil, nil, nil, observability.NewLogger("disabled", os.Stderr))
		if local {
			p.LocalDir = wd
		}
		fmt.Fprint(cmd.OutOrStdout(), p.Describe(ev, ev.Message).String())
		return nil
	},
}

var releaseRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the release workflow for the current HEAD",
	Long:  "Run the release workflow as if the current HEAD had been pushed. Use --local to build the working tree in place instead of cloning.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		wf, cfg, err := loadWorkflowFile(cmd)
		if err != nil {
			return err
		}
		local, _ := cmd.Flags().GetBool("local")
		dry, _ := cmd.Flags().GetBool("dry-run")
		force, _ := cmd.Flags().GetBool("force")
		interactive, _ := cmd.Flags().GetBool("interactive")
		buildArgs, _ := cmd.Flags().GetStringArray("build-arg")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		ev, err := localPushEvent(cmd.Context(), wd)
		if err != nil {
			return err
		}

		p, cleanup, err := buildPipeline(wf, cfg, dry, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer cleanup()
		if local {
			p.LocalDir = wd
		}
		p.DryRun = dry
		p.Force = force
		p.Interactive = interactive
		p.BuildArgs = buildArgs
		p.BuildTimeout = timeout

		return reportRun(cmd, p, ev)
	},
}

var releaseDispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Run the release workflow with an explicit version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		wf, cfg, err := loadWorkflowFile(cmd)
		if err != nil {
			return err
		}
		version, _ := cmd.Flags().GetString("version")
		ref, _ := cmd.Flags().GetString("ref")
		local, _ := cmd.Flags().GetBool("local")
		dry, _ := cmd.Flags().GetBool("dry-run")
		force, _ := cmd.Flags().GetBool("force")
		if version == "" {
			return fmt.Errorf("--version is required (like %s1.2.0)", wf.Release.TokenPrefix)
		}
		if ref == "" {
			ref = wf.Repo.DefaultBranch
		}

		ev := workflow.Event{
			Kind:    workflow.EventDispatch,
			Ref:     ref,
			Version: version,
			Actor:   user.ActorName(),
		}

		p, cleanup, err := buildPipeline(wf, cfg, dry, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer cleanup()
		if local {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			p.LocalDir = wd
		}
		p.DryRun = dry
		p.Force = force

		return reportRun(cmd, p, ev)
	},
}

// buildPipeline wires a pipeline against the real registry and forge. The
// returned cleanup closes the database connection. Build output is
// mirrored to stream as it is produced.
func buildPipeline(wf *workflow.File, cfg config.Settings, dry bool, stream io.Writer) (*pipeline.Pipeline, func(), error) {
	dbConn, err := db.InitDB()
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = dbConn.Close() }

	workspace, err := config.WorkspaceDir()
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	logger := observability.NewLogger(cfg.LogLevel, os.Stderr)
	token := cfg.Forge.Token()
	if token == "" && !dry {
		fmt.Fprintf(os.Stderr, "warning: %s is not set; forge calls will be rejected\n", cfg.Forge.TokenEnv)
	}

	runner := executor.New(false)
	runner.Stream = stream
	p := pipeline.New(wf, registry.New(dbConn), runner, forge.New(cfg.Forge.APIBase, token, logger), logger)
	p.Workspace = workspace
	return p, cleanup, nil
}

// reportRun executes the pipeline and prints the outcome. An event no
// trigger matches is reported, not treated as a failure.
func reportRun(cmd *cobra.Command, p *pipeline.Pipeline, ev workflow.Event) error {
	run, err := p.Execute(cmd.Context(), ev)
	out := cmd.OutOrStdout()
	if err != nil {
		if errors.Is(err, pipeline.ErrNotTriggered) {
			fmt.Fprintf(out, "%v\n", err)
			return nil
		}
		if run != nil {
			fmt.Fprintf(out, "run #%d failed: %v\n", run.ID, err)
		}
		return err
	}

	if run.Version != "" {
		fmt.Fprintf(out, "run #%d succeeded (version %s)\n", run.ID, run.Version)
	} else {
		fmt.Fprintf(out, "run #%d succeeded\n", run.ID)
	}
	return nil
}

func init() {
	releasePlanCmd.Flags().String("workflow", "", "Workflow file to load (default from settings)")
	releasePlanCmd.Flags().Bool("local", false, "Plan against the current working tree instead of a clone")
	releasePlanCmd.Flags().String("version", "", "Preview a manual dispatch with this version")

	releaseRunCmd.Flags().String("workflow", "", "Workflow file to load (default from settings)")
	releaseRunCmd.Flags().Bool("local", false, "Build the current working tree in place (skip checkout)")
	releaseRunCmd.Flags().Bool("dry-run", false, "Execute the build but only preview the release steps")
	releaseRunCmd.Flags().Bool("force", false, "Skip the destructive-command screen on the build script")
	releaseRunCmd.Flags().Bool("interactive", false, "Run the build through a PTY for line-buffered tool output")
	releaseRunCmd.Flags().StringArray("build-arg", nil, "Extra argument appended to the build script (repeatable)")
	releaseRunCmd.Flags().Duration("timeout", 0, "Abort the build step after this duration (0 = no limit)")

	releaseDispatchCmd.Flags().String("workflow", "", "Workflow file to load (default from settings)")
	releaseDispatchCmd.Flags().String("version", "", "Version to release (required, token prefix included)")
	releaseDispatchCmd.Flags().String("ref", "", "Branch to build (default is the repository default branch)")
	releaseDispatchCmd.Flags().Bool("local", false, "Build the current working tree in place (skip checkout)")
	releaseDispatchCmd.Flags().Bool("dry-run", false, "Execute the build but only preview the release steps")
	releaseDispatchCmd.Flags().Bool("force", false, "Skip the destructive-command screen on the build script")

	releaseCmd.AddCommand(releasePlanCmd)
	releaseCmd.AddCommand(releaseRunCmd)
	releaseCmd.AddCommand(releaseDispatchCmd)
	rootCmd.AddCommand(releaseCmd)
}
