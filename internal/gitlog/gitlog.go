// Package gitlog reads commit history through the git CLI.
package gitlog

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"
	prettyFmt = "--pretty=format:%H%x1f%an%x1f%aI%x1f%s%x1e"
)

// Commit is one commit as shown in a work log.
type Commit struct {
	Repo    string    `json:"repo"`
	Hash    string    `json:"hash"`
	Author  string    `json:"author"`
	When    time.Time `json:"when"`
	Subject string    `json:"subject"`
}

// Runner executes git in dir and returns stdout.
type Runner func(ctx context.Context, dir string, args ...string) ([]byte, error)

// ExecRunner runs the git binary found on PATH.
func ExecRunner(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// Collector gathers commits from several repositories.
type Collector struct {
	run Runner
}

// NewCollector returns a Collector; a nil runner means ExecRunner.
func NewCollector(run Runner) *Collector {
	if run == nil {
		run = ExecRunner
	}
	return &Collector{run: run}
}

// Collect returns non-merge commits in [since, until) across repos, oldest
// first. An empty author matches everyone.
func (c *Collector) Collect(ctx context.Context, repos []string, author string, since, until time.Time) ([]Commit, error) {
	var all []Commit
	for _, repo := range repos {
		args := []string{
			"log", "--no-merges", prettyFmt,
			"--since=" + since.Format(time.RFC3339),
			"--until=" + until.Format(time.RFC3339),
		}
		if author != "" {
			args = append(args, "--author="+author)
		}
		out, err := c.run(ctx, repo, args...)
		if err != nil {
			return nil, fmt.Errorf("gitlog: %s: %w", repo, err)
		}
		commits, err := parseLog(filepath.Base(filepath.Clean(repo)), out)
		if err != nil {
			return nil, fmt.Errorf("gitlog: %s: %w", repo, err)
		}
		all = append(all, commits...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].When.Before(all[j].When) })
	return all, nil
}

func parseLog(repo string, out []byte) ([]Commit, error) {
	var commits []Commit
	for _, rec := range strings.Split(string(out), recordSep) {
		rec = strings.TrimSpace(rec)
		if rec == "" {
			continue
		}
		fields := strings.Split(rec, fieldSep)
		if len(fields) != 4 {
			return nil, fmt.Errorf("malformed log record %q", rec)
		}
		when, err := time.Parse(time.RFC3339, fields[2])
		if err != nil {
			return nil, fmt.Errorf("commit %s date: %w", fields[0], err)
		}
		commits = append(commits, Commit{
			Repo:    repo,
			Hash:    fields[0],
			Author:  fields[1],
			When:    when,
			Subject: fields[3],
		})
	}
	return commits, nil
}
