package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ahmed-madyan/surge/internal/engine"
	"github.com/ahmed-madyan/surge/internal/httpclient"
	"github.com/ahmed-madyan/surge/internal/output"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Send each configured request once and run its checks",
	Long: `Probe sends every request in the configuration exactly once, runs the
attached validation checks and reports the outcome. No load is generated;
this is the smoke check to run before a load test.

  surge probe --config test.yaml
  surge probe --url https://api.example.com

The exit code is non-zero when any request fails or any check does not pass.`,
	Run: func(cmd *cobra.Command, args []string) {
		runProbe(cmd, args)
	},
}

func init() {
	probeCmd.Flags().StringP("config", "c", "", "Path to a YAML or JSON test definition")
	probeCmd.Flags().StringP("url", "u", "", "Target base URL (probes GET /)")
	probeCmd.Flags().BoolP("verbose", "v", false, "Print response bodies")
	probeCmd.Flags().Bool("no-color", false, "Disable colored output")
}

func runProbe(cmd *cobra.Command, args []string) {
	configFile, _ := cmd.Flags().GetString("config")
	url, _ := cmd.Flags().GetString("url")
	verbose, _ := cmd.Flags().GetBool("verbose")
	noColor, _ := cmd.Flags().GetBool("no-color")

	cfg, err := resolveConfig(runFlags{ConfigFile: configFile, URL: url})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if cfg == nil {
		fmt.Fprintln(os.Stderr, "Error: either --config or --url is required")
		cmd.Help()
		os.Exit(1)
	}

	scenario, err := engine.BuildScenario(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building requests: %v\n", err)
		os.Exit(1)
	}

	client := engine.NewClient(cfg)
	ctx := context.Background()

	failed := 0
	for _, sr := range scenario.Requests {
		if !probeRequest(ctx, client, sr, verbose, noColor) {
			failed++
		}
	}

	fmt.Println()
	if failed > 0 {
		fmt.Printf("%s %d of %d requests failed\n", output.ErrorIcon(noColor), failed, len(scenario.Requests))
		os.Exit(1)
	}
	fmt.Printf("%s all %d requests passed\n", output.SuccessIcon(noColor), len(scenario.Requests))
}

// probeRequest sends one request, runs its checks and prints the outcome.
// It returns false when the request or any check failed.
func probeRequest(ctx context.Context, client httpclient.Doer, sr *engine.ScenarioRequest, verbose, noColor bool) bool {
	methodColor := color.New(color.FgBlue, color.Bold)
	if noColor {
		methodColor.DisableColor()
	}

	fmt.Printf("▶ %s: %s %s\n", sr.Name, methodColor.Sprint(sr.Request.Method), sr.Request.Path)

	resp, err := client.Do(ctx, sr.Request)
	if err != nil {
		fmt.Printf("  %s request failed: %v\n", output.ErrorIcon(noColor), err)
		return false
	}

	statusColor := color.New(color.Bold)
	if resp.IsSuccess() {
		statusColor.Add(color.FgGreen)
	} else if resp.IsError() {
		statusColor.Add(color.FgRed)
	} else {
		statusColor.Add(color.FgYellow)
	}
	if noColor {
		statusColor.DisableColor()
	}

	fmt.Printf("◀ %s in %s (%d bytes)\n",
		statusColor.Sprint(resp.Status()),
		resp.Duration().Round(time.Millisecond),
		len(resp.Body()))

	if verbose && len(resp.Body()) > 0 {
		fmt.Printf("  Body: %s\n", resp.BodyString())
	}

	if sr.Validator == nil {
		// Without checks the probe verdict is the status class.
		if resp.IsError() {
			fmt.Printf("  %s error status\n", output.ErrorIcon(noColor))
			return false
		}
		return true
	}

	ok := true
	for _, result := range sr.Validator.Validate(resp) {
		if result.OK {
			fmt.Printf("  %s %s\n", output.SuccessIcon(noColor), result.Message)
		} else {
			fmt.Printf("  %s %s\n", output.ErrorIcon(noColor), result.Message)
			ok = false
		}
	}
	return ok
}
