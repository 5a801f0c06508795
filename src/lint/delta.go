package lint

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

// TargetBranchEnv overrides the branch Delta diffs against.
const TargetBranchEnv = "LINTCASCADE_TARGET_BRANCH"

// ciTargetBranchEnvs are consulted after TargetBranchEnv, in order.
var ciTargetBranchEnvs = []string{
	"CI_MERGE_REQUEST_TARGET_BRANCH_NAME",
	"GITHUB_BASE_REF",
	"BITBUCKET_PR_DESTINATION_BRANCH",
	"CHANGE_TARGET",
}

// Delta finds files changed in a git repository: uncommitted work plus
// commits not on the target branch.
type Delta struct {
	RootDir      string
	TargetBranch string
	Logger       *slog.Logger
}

// ChangedFiles returns repository-relative slash paths of changed files.
// A nil map with a nil error means no baseline exists and every file counts.
func (d *Delta) ChangedFiles(ctx context.Context) (map[string]bool, error) {
	log := d.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	repo, err := git.PlainOpen(d.RootDir)
	if err != nil {
		log.Debug("delta: not a git repository, using all files", "dir", d.RootDir)
		return nil, nil
	}

	changed := map[string]bool{}
	if err := d.addWorktree(repo, changed); err != nil {
		log.Debug("delta: worktree status failed, using all files", "error", err)
		return nil, nil
	}
	if err := d.addBranchDiff(ctx, repo, changed); err != nil {
		log.Debug("delta: branch diff failed, using all files", "error", err)
		return nil, nil
	}
	log.Debug("delta: changed files", "count", len(changed))
	return changed, nil
}

func (d *Delta) addWorktree(repo *git.Repository, changed map[string]bool) error {
	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	status, err := wt.Status()
	if err != nil {
		return err
	}
	for path, s := range status {
		if s.Worktree != git.Unmodified || s.Staging != git.Unmodified {
			changed[path] = true
		}
	}
	return nil
}

func (d *Delta) addBranchDiff(ctx context.Context, repo *git.Repository, changed map[string]bool) error {
	head, err := repo.Head()
	if err != nil {
		// An empty repository has no HEAD; only worktree changes apply.
		return nil
	}
	headCommit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return fmt.Errorf("getting HEAD commit: %w", err)
	}

	base, ok := d.baseCommit(repo, headCommit)
	if !ok {
		return nil
	}

	headTree, err := headCommit.Tree()
	if err != nil {
		return err
	}
	baseTree, err := base.Tree()
	if err != nil {
		return err
	}
	changes, err := object.DiffTreeWithOptions(ctx, baseTree, headTree, &object.DiffTreeOptions{})
	if err != nil {
		return fmt.Errorf("diffing trees: %w", err)
	}
	for _, change := range changes {
		if name := changeName(change); name != "" {
			changed[name] = true
		}
	}
	return nil
}

// baseCommit returns the commit to diff HEAD against. When HEAD is the tip
// of the target branch the parent of HEAD is used.
func (d *Delta) baseCommit(repo *git.Repository, head *object.Commit) (*object.Commit, bool) {
	branch := d.targetBranch(repo)
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		ref, err = repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
		if err != nil {
			return nil, false
		}
	}
	target, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, false
	}
	if target.Hash != head.Hash {
		return target, true
	}
	if head.NumParents() == 0 {
		return nil, false
	}
	parent, err := head.Parent(0)
	if err != nil {
		return nil, false
	}
	return parent, true
}

// targetBranch picks the branch to diff against: the environment override,
// the configured branch, a CI variable, origin's default branch, then main.
func (d *Delta) targetBranch(repo *git.Repository) string {
	if branch := os.Getenv(TargetBranchEnv); branch != "" {
		return branch
	}
	if d.TargetBranch != "" {
		return d.TargetBranch
	}
	for _, v := range ciTargetBranchEnvs {
		if branch := os.Getenv(v); branch != "" {
			return branch
		}
	}
	if ref, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", "HEAD"), false); err == nil {
		if branch, ok := strings.CutPrefix(ref.Target().String(), "refs/remotes/origin/"); ok {
			return branch
		}
	}
	return "main"
}

func changeName(change *object.Change) string {
	action, err := change.Action()
	if err != nil {
		return ""
	}
	switch action {
	case merkletrie.Insert, merkletrie.Modify:
		return change.To.Name
	case merkletrie.Delete:
		return change.From.Name
	}
	return ""
}

// FilterByDelta keeps the files present in changed. A nil set keeps all.
func FilterByDelta(files []FileInfo, changed map[string]bool) []FileInfo {
	if changed == nil {
		return files
	}
	out := make([]FileInfo, 0, len(changed))
	for _, f := range files {
		if changed[strings.TrimPrefix(filepath.ToSlash(f.Path), "./")] {
			out = append(out, f)
		}
	}
	return out
}
