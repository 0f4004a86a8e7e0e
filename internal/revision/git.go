package revision

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"strata/internal/core/errors"
	"strata/internal/project"
)

// revisions are passed to git verbatim, so the charset is restricted
// to ref syntax
var revisionPattern = regexp.MustCompile(`^[a-zA-Z0-9_\-/.~^@:]+$`)

// GitProvider reads a file's content as of a named revision by
// shelling out to git. The working tree's repository discovery is left
// to git itself.
type GitProvider struct {
	gitPath string
}

func NewGitProvider() *GitProvider {
	return &GitProvider{gitPath: "git"}
}

// ValidateRevision rejects revision strings that could be parsed as
// git options or shell metacharacters.
func ValidateRevision(rev string) error {
	if rev == "" {
		return errors.New(errors.CodeValidationError, "revision must not be empty")
	}
	if strings.HasPrefix(rev, "-") {
		return errors.New(errors.CodeValidationError, "revision must not start with a dash").
			WithContext(errors.CtxRevision, rev)
	}
	if !revisionPattern.MatchString(rev) {
		return errors.New(errors.CodeValidationError, "revision contains unsupported characters").
			WithContext(errors.CtxRevision, rev)
	}
	return nil
}

// ReadAt returns the file's content at the given revision. The path is
// made repository-relative against the project root before the lookup.
// Failures surface as DiffUnavailable so callers can distinguish "no
// change" from "comparison impossible".
func (g *GitProvider) ReadAt(ctx context.Context, path, rev string) ([]byte, error) {
	if err := ValidateRevision(rev); err != nil {
		return nil, err
	}
	root := project.RootFor(path)
	rel := project.RelPath(root, path)

	cmd := exec.CommandContext(ctx, g.gitPath, "show", fmt.Sprintf("%s:%s", rev, rel))
	cmd.Dir = filepath.Dir(path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		code := errors.CodeDiffUnavailable
		if pathMissingInRevision(msg) {
			code = errors.CodeNotFound
		}
		return nil, errors.Wrap(err, code,
			fmt.Sprintf("cannot read revision snapshot: %s", msg)).
			WithContext(errors.CtxPath, rel).
			WithContext(errors.CtxRevision, rev)
	}
	return stdout.Bytes(), nil
}

// pathMissingInRevision recognizes git's messages for a path absent
// from an otherwise valid revision, so callers can report an added
// file instead of a failed comparison.
func pathMissingInRevision(msg string) bool {
	return strings.Contains(msg, "does not exist in") ||
		strings.Contains(msg, "exists on disk, but not in")
}
