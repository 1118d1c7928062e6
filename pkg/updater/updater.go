// Package updater checks GitHub for a newer cv release.
package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultReleaseURL is the latest-release endpoint of the cv repository
const DefaultReleaseURL = "https://api.github.com/repos/Dicklesworthstone/canvas_viewer/releases/latest"

// Release is the part of a GitHub release cv looks at
type Release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// Checker queries a release endpoint
type Checker struct {
	URL    string
	Client *http.Client
}

// NewChecker returns a checker for DefaultReleaseURL with a short timeout,
// so a slow network never holds up the command for long.
func NewChecker() *Checker {
	return &Checker{
		URL:    DefaultReleaseURL,
		Client: &http.Client{Timeout: 2 * time.Second},
	}
}

// Check fetches the latest release and reports whether it is newer than
// current.
func (c *Checker) Check(ctx context.Context, current string) (Release, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return Release{}, false, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return Release{}, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Release{}, false, fmt.Errorf("github api returned status: %s", resp.Status)
	}

	var rel Release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return Release{}, false, fmt.Errorf("decode release: %w", err)
	}
	return rel, CompareVersions(rel.TagName, current) > 0, nil
}

// CompareVersions returns 1 if v1 > v2, -1 if v1 < v2, 0 if equal. Versions
// are dotted numbers with an optional "v" prefix; a pre-release suffix
// ("-rc1") sorts before the plain version.
func CompareVersions(v1, v2 string) int {
	c1, pre1 := splitVersion(v1)
	c2, pre2 := splitVersion(v2)
	for i := 0; i < max(len(c1), len(c2)); i++ {
		var a, b int
		if i < len(c1) {
			a = c1[i]
		}
		if i < len(c2) {
			b = c2[i]
		}
		if a != b {
			if a > b {
				return 1
			}
			return -1
		}
	}
	switch {
	case pre1 == pre2:
		return 0
	case pre1 == "":
		return 1
	case pre2 == "":
		return -1
	case pre1 > pre2:
		return 1
	}
	return -1
}

func splitVersion(v string) ([]int, string) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	core, pre, _ := strings.Cut(v, "-")
	var parts []int
	for _, p := range strings.Split(core, ".") {
		n, err := strconv.Atoi(p)
		if err != nil {
			n = 0
		}
		parts = append(parts, n)
	}
	return parts, pre
}
