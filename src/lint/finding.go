package lint

import (
	"github.com/sofmeright/lintcascade/src/config"
	"github.com/sofmeright/lintcascade/src/rules"
)

// FileInfo identifies a file considered for linting.
type FileInfo struct {
	Path    string // relative path from repo root
	AbsPath string // absolute path on disk
	Size    int64
}

// FilePlan is the effective configuration for one file.
type FilePlan struct {
	File   FileInfo
	Config *config.Config
	Rules  []rules.Instance
}

// RuleIDs returns the identifiers of the active rules.
func (p FilePlan) RuleIDs() []string {
	ids := make([]string, len(p.Rules))
	for i, r := range p.Rules {
		ids[i] = r.ID()
	}
	return ids
}

// PlanStats summarizes a planning pass.
type PlanStats struct {
	Files    int
	Excluded int
	// Configs is the number of distinct effective configurations.
	Configs int
}
