// Package gitutil wraps the git CLI for the operations the PR composer
// needs: discovering the repository root, inspecting status, creating
// branches, staging and committing specific files, and pushing.
//
// Grounded on wilson/capabilities/git (common.go's exec.Command wrapper,
// git_branch.go's branch listing, git_status.go's porcelain parsing),
// generalized from read-only inspection tools into the write path a PR
// composer needs.
package gitutil

import (
	"fmt"
	"os/exec"
	"strings"
)

// FindRoot finds the git repository root starting from the given path.
func FindRoot(startPath string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = startPath
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("not a git repository (or any parent): %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// Run executes a git command in dir and returns combined stdout/stderr.
func Run(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("git %s failed: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

// CurrentBranch returns the currently checked-out branch name.
func CurrentBranch(root string) (string, error) {
	out, err := Run(root, "branch", "--show-current")
	if err != nil {
		return "", err
	}
	branch := strings.TrimSpace(out)
	if branch == "" {
		return "", fmt.Errorf("repository is in detached HEAD state")
	}
	return branch, nil
}

// BranchExists reports whether a local or remote branch with the given
// name already exists.
func BranchExists(root, name string) bool {
	_, err := Run(root, "rev-parse", "--verify", "--quiet", name)
	return err == nil
}

// Status is a parsed view of `git status --porcelain=v1 --branch`.
type Status struct {
	Branch    string
	Modified  []string
	Staged    []string
	Untracked []string
	Deleted   []string
	Clean     bool
}

// GetStatus reports the working tree status of root.
func GetStatus(root string) (*Status, error) {
	out, err := Run(root, "status", "--porcelain=v1", "--branch")
	if err != nil {
		return nil, err
	}
	return parseStatus(out), nil
}

func parseStatus(output string) *Status {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	st := &Status{Branch: "unknown"}

	for _, line := range lines {
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "##") {
			info := strings.TrimPrefix(line, "## ")
			if idx := strings.Index(info, "..."); idx != -1 {
				st.Branch = info[:idx]
			} else if idx := strings.Index(info, " "); idx != -1 {
				st.Branch = info[:idx]
			} else {
				st.Branch = info
			}
			continue
		}
		if len(line) < 3 {
			continue
		}
		statusCode := line[:2]
		filename := strings.TrimSpace(line[3:])

		if statusCode == "??" {
			st.Untracked = append(st.Untracked, filename)
			continue
		}

		staged, working := statusCode[0], statusCode[1]
		if staged != ' ' && staged != '?' {
			st.Staged = append(st.Staged, filename)
		}
		switch working {
		case 'M':
			st.Modified = append(st.Modified, filename)
		case 'D':
			st.Deleted = append(st.Deleted, filename)
		}
		if staged == 'D' && working != 'D' {
			st.Deleted = append(st.Deleted, filename)
		}
	}

	st.Clean = len(st.Modified) == 0 && len(st.Staged) == 0 &&
		len(st.Untracked) == 0 && len(st.Deleted) == 0
	return st
}

// CreateBranch creates and checks out a new branch from the current HEAD.
func CreateBranch(root, name string) error {
	_, err := Run(root, "checkout", "-b", name)
	return err
}

// Checkout checks out an existing branch or ref.
func Checkout(root, ref string) error {
	_, err := Run(root, "checkout", ref)
	return err
}

// StageFiles adds exactly the given paths to the index — never `git add -A`,
// since the PR composer must stage only the files the attempt changed.
func StageFiles(root string, paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("no files to stage")
	}
	args := append([]string{"add", "--"}, paths...)
	_, err := Run(root, args...)
	return err
}

// Commit creates a commit with the given message from the currently
// staged changes.
func Commit(root, message string) error {
	_, err := Run(root, "commit", "-m", message)
	return err
}

// Push pushes branch to origin, creating the upstream tracking ref.
func Push(root, branch string) error {
	_, err := Run(root, "push", "-u", "origin", branch)
	return err
}

// Diff returns the unified diff for the given paths against HEAD.
func Diff(root string, paths []string) (string, error) {
	args := append([]string{"diff", "HEAD", "--"}, paths...)
	return Run(root, args...)
}

// RemoteURL returns the fetch URL configured for the given remote (origin
// by default).
func RemoteURL(root, remote string) (string, error) {
	if remote == "" {
		remote = "origin"
	}
	out, err := Run(root, "remote", "get-url", remote)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// OwnerRepo parses a remote URL in either SSH (git@host:owner/repo.git) or
// HTTPS (https://host/owner/repo.git) form into (owner, repo).
func OwnerRepo(remoteURL string) (owner, repo string, err error) {
	url := strings.TrimSuffix(strings.TrimSpace(remoteURL), ".git")

	if strings.HasPrefix(url, "git@") {
		// git@host:owner/repo
		idx := strings.Index(url, ":")
		if idx == -1 {
			return "", "", fmt.Errorf("malformed ssh remote url: %s", remoteURL)
		}
		path := url[idx+1:]
		return splitOwnerRepo(path, remoteURL)
	}

	if strings.HasPrefix(url, "https://") || strings.HasPrefix(url, "http://") {
		withoutScheme := url[strings.Index(url, "://")+3:]
		parts := strings.SplitN(withoutScheme, "/", 2)
		if len(parts) != 2 {
			return "", "", fmt.Errorf("malformed https remote url: %s", remoteURL)
		}
		return splitOwnerRepo(parts[1], remoteURL)
	}

	return "", "", fmt.Errorf("unrecognized remote url form: %s", remoteURL)
}

func splitOwnerRepo(path, original string) (string, string, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("could not extract owner/repo from: %s", original)
	}
	return parts[len(parts)-2], parts[len(parts)-1], nil
}
