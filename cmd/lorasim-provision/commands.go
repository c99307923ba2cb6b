package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/lorasim/internal/provision"
	"github.com/muurk/lorasim/internal/registry"
	"github.com/muurk/lorasim/internal/ui"
	"github.com/muurk/lorasim/internal/wizard/tui"
)

// Provisioning command flags
var (
	assumeYes         bool
	onlyIDs           []string
	includeRegistered bool
	verbose           bool
)

var errValidationFailed = errors.New("registry validation failed")

func init() {
	rootCmd.AddCommand(wizardCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(provisionCmd)
}

// wizardCmd launches the interactive TUI wizard
var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Launch interactive provisioning wizard",
	Long: `Launch an interactive TUI wizard for registry provisioning.

The wizard validates the registry connection, shows which inventory
entities are already registered, lets you pick what to register, and
registers the confirmed selection.

This is the recommended way to provision for most users.`,
	Example: `  # Launch wizard for the default org
  lorasim-provision wizard
  # Or simply (wizard is default):
  lorasim-provision

  # Launch wizard for another org, streaming events to a dashboard
  lorasim-provision --org lab --events-addr 127.0.0.1:8765`,
	RunE: runWizard,
}

func runWizard(cmd *cobra.Command, args []string) error {
	if !ui.IsTerminal() {
		return fmt.Errorf("the wizard needs an interactive terminal; use 'lorasim-provision provision --yes' instead")
	}

	s, err := loadSession()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	feed := tui.NewFeed()
	observer := provision.Tee(feed.Observer(), startEventFeed(ctx, nil))
	wiz := s.newWizard(observer)

	state, err := tui.Run(ctx, wiz, feed, s.org)
	if err != nil {
		return fmt.Errorf("wizard error: %w", err)
	}

	if state.Summary != nil {
		p := ui.NewPrinter(cmd.OutOrStdout())
		p.PrintResult(ui.SummaryResult(state.Summary))
		if state.Summary.Failed > 0 {
			return fmt.Errorf("%d registration(s) failed", state.Summary.Failed)
		}
	}
	return nil
}

// validateCmd checks registry settings and credentials
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check registry settings and API key",
	Long: `Run the connection checks for an org without changing anything.

Checks run in order and stop at the first failure:
  enabled -> cluster -> application -> credential -> permissions`,
	Example: `  # Validate the default org
  lorasim-provision validate

  # Validate against a private deployment
  lorasim-provision validate --org lab --base-url https://tts.example.com`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	s, err := loadSession()
	if err != nil {
		return err
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintHeader("Registry Validation", "lorasim-provision validate", orgParams(s)...)
	printConfigProblems(p, s)

	ctx, stop := signalContext()
	defer stop()

	report, err := s.newWizard(nil).Validate(ctx)
	if err != nil {
		return err
	}

	p.Println(ui.RenderValidation(report))
	p.Newline()
	if !report.Success() {
		p.PrintError("Validation failed", report.Err, ui.Tips(registry.GetTroubleshootingHint(report.Err)))
		return errValidationFailed
	}
	p.PrintSuccess("Registry connection OK", ui.Detail{Key: "Org", Value: s.org})
	return nil
}

// discoverCmd reports which inventory entities are registered
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Show which inventory entities are already registered",
	Long: `Validate the registry connection, then check every inventory entity
against the registry. Nothing is registered.

Entities marked [x] are the ones the wizard would select by default.`,
	Example: `  # Discover for the default org
  lorasim-provision discover

  # Print each entity as soon as it resolves
  lorasim-provision discover --verbose`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print each entity as it resolves")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	s, err := loadSession()
	if err != nil {
		return err
	}

	r := ui.NewRunner(cmd.OutOrStdout(), "Registry Discovery", "lorasim-provision discover", orgParams(s)...)
	r.Verbose = verbose
	r.Start()
	printConfigProblems(r.Printer(), s)

	ctx, stop := signalContext()
	defer stop()

	wiz := s.newWizard(r.Observer())
	if err := validate(ctx, wiz, r); err != nil {
		return err
	}
	if err := wiz.Next(ctx); err != nil {
		return err
	}

	st := wiz.State()
	p := r.Printer()
	p.Newline()
	p.Println(ui.RenderEntities(st.Entities, st.Discovery, &st.Selection, -1))
	p.Newline()

	d := st.Discovery
	p.PrintSuccess(fmt.Sprintf("%d entities checked", len(st.Entities)),
		ui.Detail{Key: "Registered", Value: fmt.Sprint(d.Count(provision.StatusRegistered))},
		ui.Detail{Key: "Not registered", Value: fmt.Sprint(d.Count(provision.StatusNotRegistered))},
		ui.Detail{Key: "Errors", Value: fmt.Sprint(d.Count(provision.StatusError))},
	)
	return nil
}

// provisionCmd runs the whole workflow without the TUI
var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Register inventory entities non-interactively",
	Long: `Run validate, discover, select and execute in one go.

By default every entity not yet registered is selected. The plan is shown
and must be confirmed by typing "yes" unless --yes is given.

Registrations are never rolled back: an entity that fails is reported and
the rest continue.`,
	Example: `  # Register everything missing, with confirmation
  lorasim-provision provision

  # Register two specific entities without prompting
  lorasim-provision provision --only gw-roof,dev-07 --yes

  # Re-submit entities that already exist (reported as already_exists)
  lorasim-provision provision --include-registered`,
	RunE: runProvision,
}

func init() {
	provisionCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
	provisionCmd.Flags().StringSliceVar(&onlyIDs, "only", nil, "Register only these local IDs (comma separated)")
	provisionCmd.Flags().BoolVar(&includeRegistered, "include-registered", false, "Also select entities that are already registered")
	provisionCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print each entity as discovery resolves it")
}

func runProvision(cmd *cobra.Command, args []string) error {
	s, err := loadSession()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	r := ui.NewRunner(out, "Registry Provisioning", "lorasim-provision provision", orgParams(s)...)
	r.Verbose = verbose
	r.Start()
	printConfigProblems(r.Printer(), s)

	ctx, stop := signalContext()
	defer stop()

	observer := provision.Tee(r.Observer(), startEventFeed(ctx, func(url string) {
		fmt.Fprintf(os.Stderr, "Event feed: %s\n", url)
	}))
	wiz := s.newWizard(observer)

	if err := validate(ctx, wiz, r); err != nil {
		return err
	}
	if err := wiz.Next(ctx); err != nil {
		return err
	}

	if err := applySelection(wiz, onlyIDs, includeRegistered); err != nil {
		r.Finish(nil, err, nil)
		return err
	}
	if err := wiz.Next(ctx); err != nil {
		if errors.Is(err, provision.ErrNothingSelected) {
			r.Finish(nil, nil, nil)
			return nil
		}
		return err
	}
	if err := wiz.Confirm(); err != nil {
		return err
	}

	plans := wiz.State().Plans
	if !assumeYes && !ui.ConfirmPlans(cmd.InOrStdin(), out, s.org, plans) {
		return fmt.Errorf("aborted by user")
	}
	if assumeYes {
		r.Printer().Println(ui.RenderPlans(plans))
		r.Printer().Newline()
	}

	// Execute, then Complete
	if err := wiz.Next(ctx); err != nil {
		return err
	}
	if err := wiz.Next(ctx); err != nil {
		return err
	}

	sum := wiz.State().Summary
	r.Finish(sum, nil, nil)
	if sum != nil && sum.Failed > 0 {
		return fmt.Errorf("%d registration(s) failed", sum.Failed)
	}
	return nil
}

// validate runs the Validate step and prints the failure box if it fails
func validate(ctx context.Context, wiz *provision.Wizard, r *ui.Runner) error {
	report, err := wiz.Validate(ctx)
	if err != nil {
		return err
	}
	if !report.Success() {
		r.Finish(nil, report.Err, ui.Tips(registry.GetTroubleshootingHint(report.Err)))
		return errValidationFailed
	}
	return nil
}

// applySelection narrows or widens the default discovery selection
func applySelection(wiz *provision.Wizard, only []string, all bool) error {
	if len(only) > 0 {
		if err := wiz.SelectNone(); err != nil {
			return err
		}
		for _, id := range only {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if err := wiz.Toggle(id); err != nil {
				return fmt.Errorf("--only %s: %w", id, err)
			}
		}
		return nil
	}

	if all {
		st := wiz.State()
		for _, e := range st.Entities {
			if st.Selection.Has(e.LocalID) || st.Discovery.Statuses[e.LocalID] != provision.StatusRegistered {
				continue
			}
			if err := wiz.Toggle(e.LocalID); err != nil {
				return err
			}
		}
	}
	return nil
}

func orgParams(s *session) []ui.Detail {
	params := []ui.Detail{
		{Key: "Org", Value: s.org},
		{Key: "Cluster", Value: s.registry.Cluster},
		{Key: "Application", Value: s.registry.ApplicationID},
		{Key: "Entities", Value: fmt.Sprint(len(s.entities))},
	}
	if s.baseURL != "" {
		params = append(params, ui.Detail{Key: "Base URL", Value: s.baseURL})
	}
	return params
}

func printConfigProblems(p *ui.Printer, s *session) {
	problems := s.configProblems()
	if len(problems) == 0 {
		return
	}
	details := make([]ui.Detail, 0, len(problems))
	for i, err := range problems {
		details = append(details, ui.Detail{Key: fmt.Sprintf("%d", i+1), Value: err.Error()})
	}
	p.PrintWarning("Configuration problems", details...)
}
