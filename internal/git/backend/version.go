package backend

import (
	"fmt"
	"os/exec"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// gitVersion is major, minor and patch.
type gitVersion [3]int

// The log stream feeds its heads through "log --stdin", and "diff-tree --root"
// must list the files of parentless commits.
var minGitVersion = gitVersion{2, 23, 0}

var gitVersionRE = regexp.MustCompile(`^(?:git version\s+)?(\d+)\.(\d+)(?:\.(\d+))?`)

func (v gitVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
}

func (v gitVersion) atLeast(other gitVersion) bool {
	return slices.Compare(v[:], other[:]) >= 0
}

// parseGitVersion reads the output of "git --version". Vendor suffixes such
// as " (Apple Git-146)" or ".windows.1" are ignored.
func parseGitVersion(out string) (gitVersion, error) {
	m := gitVersionRE.FindStringSubmatch(strings.TrimSpace(out))
	if m == nil {
		return gitVersion{}, fmt.Errorf("unrecognized git version %q", strings.TrimSpace(out))
	}
	var v gitVersion
	for i, field := range m[1:] {
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil {
			return gitVersion{}, fmt.Errorf("unrecognized git version %q: %w", strings.TrimSpace(out), err)
		}
		v[i] = n
	}
	return v, nil
}

func checkGitVersion(out string) error {
	got, err := parseGitVersion(out)
	if err != nil {
		return err
	}
	if !got.atLeast(minGitVersion) {
		return fmt.Errorf("git %s is too old; the gitcli backend needs git >= %s", got, minGitVersion)
	}
	return nil
}

var ensureMinGitVersion = sync.OnceValue(func() error {
	out, err := exec.Command("git", "--version").CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("git --version: %w: %s", err, msg)
		}
		return fmt.Errorf("git --version: %w", err)
	}
	return checkGitVersion(string(out))
})
