package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/muurk/lorasim/internal/config"
	"github.com/muurk/lorasim/internal/discovery"
	"github.com/muurk/lorasim/internal/eui"
	"github.com/muurk/lorasim/internal/provision"
	"github.com/muurk/lorasim/internal/registry"
	"github.com/muurk/lorasim/internal/ui"
)

// Inventory command flags
var (
	scanTimeout int
	scanAdd     bool

	entityEUI       string
	entityKind      string
	entityName      string
	entityJoinEUI   string
	entityAppKeyRef string
	entityOrg       string
)

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(inventoryCmd)
	rootCmd.AddCommand(configCmd)

	inventoryCmd.AddCommand(inventoryListCmd)
	inventoryCmd.AddCommand(inventoryAddCmd)
	inventoryCmd.AddCommand(inventoryRemoveCmd)

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPrefCmd)
	configCmd.AddCommand(configInitCmd)
}

// scanCmd discovers emulated entities on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for emulated devices and gateways on the network",
	Long: `Scan for emulated LoRaWAN entities using mDNS/DNS-SD discovery.

Emulators advertise ` + discovery.ServiceType + ` with TXT records carrying the
hardware EUI and kind. With --add, every valid node not yet in the
inventory is added to it.`,
	Example: `  # Scan for 5 seconds (default)
  lorasim-provision scan

  # Longer scan, adding what was found to the inventory for org lab
  lorasim-provision scan --timeout 15 --add --org lab`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 0, "Scan timeout in seconds (default: preferences.discover_timeout)")
	scanCmd.Flags().BoolVar(&scanAdd, "add", false, "Add discovered entities to the inventory")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadGlobal()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	timeout := cfg.DiscoverTimeoutDuration()
	if scanTimeout > 0 {
		timeout = time.Duration(scanTimeout) * time.Second
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintHeader("Network Scan", "lorasim-provision scan",
		ui.Detail{Key: "Service", Value: discovery.ServiceType},
		ui.Detail{Key: "Timeout", Value: timeout.String()},
	)

	ctx, stop := signalContext()
	defer stop()

	nodes, err := discovery.Scan(ctx, timeout)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(nodes) == 0 {
		p.PrintWarning("No entities found")
		p.Println("Troubleshooting:")
		p.Println("  - Ensure the emulator is running and advertising " + discovery.ServiceType)
		p.Println("  - Check that multicast traffic is allowed on this network")
		p.Println("  - Try increasing --timeout for slower networks")
		p.Println("  - Use 'lorasim-provision inventory add' to add entities manually")
		return nil
	}

	p.Println(fmt.Sprintf("Found %d entit(ies):", len(nodes)))
	p.Newline()
	for i, n := range nodes {
		p.Println(fmt.Sprintf("%d. %s", i+1, n.Instance))
		p.Println(fmt.Sprintf("   Kind:    %s", n.Kind))
		p.Println(fmt.Sprintf("   EUI:     %s", eui.Pretty(n.EUI)))
		p.Println(fmt.Sprintf("   Address: %s:%d", n.IP, n.Port))
		if name := n.GetMetadata(discovery.TxtName); name != "" {
			p.Println(fmt.Sprintf("   Name:    %s", name))
		}
		p.Newline()
	}

	if !scanAdd {
		p.Println("Use 'lorasim-provision scan --add' to add these to the inventory")
		return nil
	}

	added, skipped := addNodes(cfg, nodes, orgFlag)
	for _, msg := range skipped {
		p.Println(ui.StepNoteStyle.Render("  skipped " + msg))
	}
	if len(added) == 0 {
		p.PrintWarning("Inventory unchanged")
		return nil
	}
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	p.PrintSuccess(fmt.Sprintf("Added %d entit(ies) to the inventory", len(added)),
		ui.Detail{Key: "IDs", Value: strings.Join(added, ", ")},
		ui.Detail{Key: "Config", Value: cfg.Path()},
	)
	return nil
}

// addNodes adds every valid node to cfg's inventory, returning the added
// local IDs and a reason for each node skipped.
func addNodes(cfg *config.Config, nodes []*discovery.Node, org string) (added, skipped []string) {
	for _, n := range nodes {
		e := n.ToEntity()
		e.Org = org
		if errs := registry.ValidateEntity(e.ToProvision()); len(errs) > 0 {
			skipped = append(skipped, fmt.Sprintf("%s: %v", e.LocalID, errs[0]))
			continue
		}
		if err := cfg.AddEntity(e); err != nil {
			skipped = append(skipped, fmt.Sprintf("%s: %v", e.LocalID, err))
			continue
		}
		added = append(added, e.LocalID)
	}
	return added, skipped
}

// inventoryCmd groups inventory management
var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Manage the local inventory of emulated entities",
}

var inventoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List inventory entities",
	Example: `  # Every entity
  lorasim-provision inventory list

  # Only entities provisioned to org lab
  lorasim-provision inventory list --org lab`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		p := ui.NewPrinter(cmd.OutOrStdout())
		entities := cfg.Entities(orgFlag)
		if len(entities) == 0 {
			p.PrintWarning("Inventory is empty", ui.Detail{Key: "Config", Value: cfg.Path()})
			return nil
		}
		p.Println(renderInventory(cfg, entities))
		return nil
	},
}

func renderInventory(cfg *config.Config, entities []provision.Entity) string {
	var b strings.Builder
	b.WriteString(ui.TableHeaderStyle.Render(fmt.Sprintf("%-20s %-8s %-24s %-10s %s", "ID", "KIND", "EUI", "ORG", "REMOTE ID")))
	b.WriteString("\n")
	for _, e := range entities {
		org := "*"
		if c := cfg.FindEntity(e.LocalID); c != nil && c.Org != "" {
			org = c.Org
		}
		remote, err := e.RemoteID()
		if err != nil {
			remote = ui.ErrorMessageStyle.Render("invalid EUI")
		}
		fmt.Fprintf(&b, "%-20s %-8s %-24s %-10s %s\n", e.LocalID, e.Kind, eui.Pretty(e.HardwareEUI), org, remote)
	}
	return strings.TrimRight(b.String(), "\n")
}

var inventoryAddCmd = &cobra.Command{
	Use:   "add <local-id>",
	Short: "Add an entity to the inventory",
	Example: `  # Add an OTAA device with its AppKey in an environment variable
  lorasim-provision inventory add dev-07 --eui 70B3D57ED0000007 --kind device \
    --join-eui 0000000000000000 --app-key-ref env:DEV07_APPKEY

  # Add a gateway that only org lab provisions
  lorasim-provision inventory add gw-roof --eui B827EBFFFE000001 --kind gateway --entity-org lab`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		e := &config.Entity{
			LocalID:     args[0],
			HardwareEUI: entityEUI,
			DisplayName: entityName,
			Kind:        entityKind,
			JoinEUI:     entityJoinEUI,
			AppKeyRef:   entityAppKeyRef,
			Org:         entityOrg,
		}
		if errs := registry.ValidateEntity(e.ToProvision()); len(errs) > 0 {
			return fmt.Errorf("invalid entity: %w", errs[0])
		}
		if err := cfg.AddEntity(e); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		remote, _ := e.ToProvision().RemoteID()
		ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Entity added",
			ui.Detail{Key: "ID", Value: e.LocalID},
			ui.Detail{Key: "Remote ID", Value: remote},
		)
		return nil
	},
}

func init() {
	f := inventoryAddCmd.Flags()
	f.StringVar(&entityEUI, "eui", "", "Hardware EUI (16 hex digits, separators allowed)")
	f.StringVar(&entityKind, "kind", string(provision.KindDevice), "Entity kind (device, gateway)")
	f.StringVar(&entityName, "name", "", "Display name")
	f.StringVar(&entityJoinEUI, "join-eui", "", "Join EUI for OTAA devices")
	f.StringVar(&entityAppKeyRef, "app-key-ref", "", "Where the AppKey lives (env:NAME or file:/path)")
	f.StringVar(&entityOrg, "entity-org", "", "Only provision this entity to one org (default: every org)")
	_ = inventoryAddCmd.MarkFlagRequired("eui")
}

var inventoryRemoveCmd = &cobra.Command{
	Use:     "remove <local-id>",
	Aliases: []string{"rm"},
	Short:   "Remove an entity from the inventory",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if !cfg.RemoveEntity(args[0]) {
			return fmt.Errorf("no inventory entity %q", args[0])
		}
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Entity removed", ui.Detail{Key: "ID", Value: args[0]})
		return nil
	},
}

// configCmd groups config file management
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change registry settings and preferences",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", cfg.Path(), data)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <org> <key> <value>",
	Short: "Set a registry setting for an org",
	Long: `Set one registry setting for an org, creating the org if needed.

Keys: ` + strings.Join(config.OrgKeys, ", ") + `

API keys are never stored: credential_ref names where the key lives,
either env:NAME or file:/path.`,
	Example: `  lorasim-provision config set acme cluster eu1
  lorasim-provision config set acme application_id acme-sim
  lorasim-provision config set acme credential_ref env:ACME_TTN_KEY
  lorasim-provision config set acme enabled true`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		org, key, value := args[0], args[1], args[2]
		if key == "credential_ref" {
			if err := registry.ValidateRef(value); err != nil {
				return err
			}
		}
		if err := cfg.SetOrgField(org, key, value); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Setting saved",
			ui.Detail{Key: "Org", Value: org},
			ui.Detail{Key: key, Value: value},
		)
		return nil
	},
}

var configPrefCmd = &cobra.Command{
	Use:   "pref <key> <value>",
	Short: "Set a preference",
	Long:  `Set one application preference. Keys: ` + strings.Join(config.PreferenceKeys, ", "),
	Example: `  lorasim-provision config pref default_org acme
  lorasim-provision config pref workers 8`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.SetPreference(args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Preference saved", ui.Detail{Key: args[0], Value: args[1]})
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write an example config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		if _, err := config.CreateDefaultConfig(path); err != nil {
			return err
		}
		ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Config created",
			ui.Detail{Key: "Path", Value: path},
			ui.Detail{Key: "Next", Value: "edit the example org, then run 'lorasim-provision validate'"},
		)
		return nil
	},
}
