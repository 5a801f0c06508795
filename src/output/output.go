package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sofmeright/lintcascade/src/config"
	"github.com/sofmeright/lintcascade/src/lint"
	"github.com/sofmeright/lintcascade/src/rules"
)

// Colors for terminal output.
const (
	colorReset  = "\033[0m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// IsCI reports whether the process runs in a CI job.
func IsCI() bool {
	return os.Getenv("CI") == "true"
}

func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// UseColor returns true if colored output should be used.
// Respects NO_COLOR env, TERM=dumb, and terminal detection.
func UseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return isTerminal() || IsCI()
}

func colorize(text, code string, color bool) string {
	if !color {
		return text
	}
	return code + text + colorReset
}

// Warnings writes one line per warning.
func Warnings(w io.Writer, warnings []config.Warning, color bool) {
	for _, warn := range warnings {
		origin := ""
		if warn.Origin != "" {
			origin = colorize(warn.Origin, colorBold, color) + ": "
		}
		fmt.Fprintf(w, "%s %s%s\n", colorize("warning", colorYellow, color), origin, warn.Message)
	}
}

// ConfigSection renders the effective configuration of one file.
func ConfigSection(sec *Section, cfg *config.Config, cat *rules.Catalog, color bool) {
	sec.Field("root", cfg.RootDir)
	sec.List("sources", cfg.Origins)
	sec.Separator()

	sel := cfg.Selection
	sec.Field("mode", sel.Mode.String())
	switch sel.Mode {
	case rules.ModeDefault:
		sec.List("disabled", sel.Disabled.Sorted())
		sec.List("opt-in", sel.OptIn.Sorted())
	case rules.ModeOnly:
		sec.List("only", sel.Only.Sorted())
	}
	sec.Separator()

	active := cfg.ResultingRules(cat)
	sec.Field("rules", fmt.Sprintf("%d active", len(active)))
	for _, inst := range active {
		sec.Field("", ruleLabel(inst, color))
	}
	sec.Separator()

	sec.List("included", cfg.Included)
	sec.List("excluded", cfg.Excluded)
	if cfg.WarningThreshold != nil {
		sec.Field("threshold", fmt.Sprintf("%d", *cfg.WarningThreshold))
	}
	sec.Field("reporter", cfg.EffectiveReporter())
	sec.Field("indentation", cfg.EffectiveIndentation().String())
	if cfg.CachePath != "" {
		sec.Field("cache", cfg.CachePath)
	}
}

func ruleLabel(inst rules.Instance, color bool) string {
	switch r := inst.(type) {
	case *rules.Regular:
		if r.Explicit {
			return r.ID() + " " + colorize("(configured)", colorCyan, color)
		}
		return r.ID()
	case *rules.CustomAggregate:
		return r.ID() + " " + Dimmed("["+strings.Join(r.IDs(), ", ")+"]", color)
	}
	return inst.ID()
}

// PlanTable writes one row per planned file with its active rule count and
// the configuration that governs it.
func PlanTable(sec *Section, plans []lint.FilePlan, stats lint.PlanStats, color bool) {
	sec.Row("%-36s%6s  %s", "file", "rules", "config")
	for _, p := range plans {
		sec.Row("%-36s%6d  %s", p.File.Path, len(p.Rules), Dimmed(p.Config.Origin, color))
	}
	sec.Separator()
	sec.Row("%d files, %d excluded, %d distinct configurations", stats.Files, stats.Excluded, stats.Configs)
}
