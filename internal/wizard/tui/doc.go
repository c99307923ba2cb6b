// Package tui implements the full-screen provisioning wizard.
//
// The screen is a Bubble Tea front end over provision.Wizard. It holds no
// workflow rules of its own: keys map to wizard calls, and the view is drawn
// from the wizard's state snapshot. Remote operations (validate, discover,
// register) run as tea.Cmds; while they run, wizard events arrive through a
// Feed and update the entity table and progress bar live.
//
// # Screen Flow
//
//  1. Validate: connection checks run on start. enter continues, r retries.
//  2. Discover: each inventory entity is checked against the registry.
//     Unregistered entities are preselected. space toggles, a selects all
//     unregistered, n clears, r re-runs the checks.
//  3. Select & confirm: c shows the registration plan and latches the
//     confirmation gate; e unlocks the selection again.
//  4. Register: outcomes stream in as each registration completes.
//  5. Complete: the summary box. enter or q exits.
//
// b goes back one step from Discover and Select, discarding later results.
//
// # Usage Example
//
//	feed := tui.NewFeed()
//	wiz := provision.NewWizard(client, cfg, entities,
//	    provision.Options{Observer: provision.Tee(feed.Observer(), hub.Observer())})
//	final, err := tui.Run(ctx, wiz, feed, cfg.OrgID)
//
// All model updates happen on the Bubble Tea goroutine; the wizard
// serializes its own calls.
package tui
