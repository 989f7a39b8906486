package convert

import (
	"path/filepath"

	"github.com/go-git/go-git/v6"
)

// dirtyTracked returns the paths that are tracked by an enclosing git
// repository and have uncommitted changes. Paths outside of a repository
// are never reported.
func dirtyTracked(paths []string) []string {
	var dirty []string
	statuses := make(map[string]git.Status) // worktree root -> status
	roots := make(map[string]string)        // output directory -> worktree root

	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		dir := filepath.Dir(abs)

		root, seen := roots[dir]
		if !seen {
			root = openWorktreeStatus(dir, statuses)
			roots[dir] = root
		}
		if root == "" {
			continue
		}

		rel, err := filepath.Rel(root, abs)
		if err != nil {
			continue
		}
		fs, ok := statuses[root][filepath.ToSlash(rel)]
		if !ok || fs.Worktree == git.Untracked {
			continue
		}
		if fs.Worktree != git.Unmodified || fs.Staging != git.Unmodified {
			dirty = append(dirty, path)
		}
	}
	return dirty
}

// openWorktreeStatus finds the repository containing dir, records its status
// and returns the worktree root, or "" when there is none
func openWorktreeStatus(dir string, statuses map[string]git.Status) string {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	w, err := repo.Worktree()
	if err != nil {
		return "" // bare repository
	}
	root := w.Filesystem.Root()
	if _, ok := statuses[root]; ok {
		return root
	}
	status, err := w.Status()
	if err != nil {
		return ""
	}
	statuses[root] = status
	return root
}
