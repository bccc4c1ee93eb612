package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hazukari/sc3kit/internal/config"
	"github.com/hazukari/sc3kit/internal/utils"
	"github.com/hazukari/sc3kit/internal/workflow"
)

const starterWorkflow = `name: release

on:
  push:
    branches: [main]
  dispatch:

repo:
  owner: your-user
  name: your-repo
  default_branch: main

build:
  script: scripts/build.sh
  artifacts:
    - dist/*

release:
  token_prefix: v
  asset: dist/{repo}-{version}.zip
  name: "{repo} {version}"
  notes: "Automated release of {repo} {version} ({sha})."
`

// workflowPath resolves the workflow file the subcommands operate on:
// --workflow flag first, then the settings override, then release.yml.
func workflowPath(cmd *cobra.Command) string {
	if path, _ := cmd.Flags().GetString("workflow"); path != "" {
		return path
	}
	if cfg, err := config.LoadSettings(); err == nil && cfg.Pipeline.WorkflowFile != "" {
		return cfg.Pipeline.WorkflowFile
	}
	return "release.yml"
}

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Inspect and edit the release workflow file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var workflowCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Parse and validate the workflow file, then print its shape",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := workflowPath(cmd)
		wf, err := workflow.Load(path)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: ok\n", path)
		fmt.Fprintf(out, "workflow: %s\n", wf.Name)
		fmt.Fprintf(out, "repo: %s (default branch %s)\n", wf.Repo.Slug(), wf.Repo.DefaultBranch)
		if wf.On.Push != nil {
			fmt.Fprintf(out, "on push: %s\n", strings.Join(wf.On.Push.Branches, ", "))
		}
		if wf.On.PullRequest != nil {
			fmt.Fprintf(out, "on pull_request: %s\n", strings.Join(wf.On.PullRequest.Branches, ", "))
		}
		if wf.On.Dispatch != nil {
			fmt.Fprintln(out, "on dispatch: enabled")
		}
		fmt.Fprintf(out, "build: %s\n", wf.Build.Script)
		fmt.Fprintf(out, "artifacts: %s\n", strings.Join(wf.Build.Artifacts, ", "))
		fmt.Fprintf(out, "release asset: %s\n", wf.Release.Asset)
		fmt.Fprintf(out, "version token: %s<semver> in the commit subject\n", wf.Release.TokenPrefix)
		return nil
	},
}

var workflowInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter workflow file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := workflowPath(cmd)
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := os.WriteFile(path, []byte(starterWorkflow), 0o644); err != nil {
			return fmt.Errorf("write workflow: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s; edit repo.owner and repo.name before running\n", path)
		return nil
	},
}

var workflowEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the workflow file in your editor, then re-validate it",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := workflowPath(cmd)
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%s not found (run 'sc3kit workflow init' first)", path)
		}
		if err := utils.OpenEditor(path); err != nil {
			return err
		}
		if _, err := workflow.Load(path); err != nil {
			return fmt.Errorf("workflow has errors after edit: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{workflowCheckCmd, workflowInitCmd, workflowEditCmd} {
		c.Flags().String("workflow", "", "Path to the workflow file (default: settings, then release.yml)")
	}
	workflowInitCmd.Flags().Bool("force", false, "Overwrite an existing workflow file")
	workflowCmd.AddCommand(workflowCheckCmd)
	workflowCmd.AddCommand(workflowInitCmd)
	workflowCmd.AddCommand(workflowEditCmd)
	rootCmd.AddCommand(workflowCmd)
}
