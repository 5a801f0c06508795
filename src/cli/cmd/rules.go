package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sofmeright/lintcascade/src/output"
	"github.com/sofmeright/lintcascade/src/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules [file]",
	Short: "List known rules and whether they are enabled",
	Long: `List every cataloged rule with its opt-in status and whether the
effective configuration enables it. With a file argument, the configuration
that applies to that file is used; otherwise the root configuration.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}

func runRules(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadRoot(ctx)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		if cfg, err = resolver.ResolveForFile(ctx, cfg, args[0]); err != nil {
			return err
		}
	}
	cat := resolver.Catalog()

	enabled := rules.NewIDSet(cfg.ResultingRuleIDs(cat)...)
	color := output.UseColor()
	sec := output.NewSection(os.Stdout, "Rules", 0, color)
	sec.Row("%-32s%-8s%-9s%s", "identifier", "opt-in", "enabled", "configured")
	for _, id := range cat.IDs() {
		configured := false
		if inst, ok := cfg.Instances[id].(*rules.Regular); ok {
			configured = inst.Explicit
		}
		sec.Row("%-32s%-8s%-9s%s",
			id,
			yesNo(cat.IsOptIn(id)),
			output.StatusIcon(enabled.Has(id), color),
			yesNo(configured),
		)
	}
	if agg, ok := cfg.Instances[rules.CustomRulesID].(*rules.CustomAggregate); ok {
		sec.Separator()
		for _, id := range agg.IDs() {
			sec.Row("%-32s%-8s%-9s%s", id, "custom", output.StatusIcon(cfg.Selection.AllowsCustom(id), color), "yes")
		}
	}
	sec.Separator()
	sec.Row("%d of %d rules enabled", len(enabled), len(cat.IDs()))
	sec.Close()
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
