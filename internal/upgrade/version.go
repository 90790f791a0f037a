package upgrade

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var triplePattern = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+)`)

// ClusterVersion is the major.minor.patch version of the control plane.
type ClusterVersion struct {
	Major uint64 `json:"major"`
	Minor uint64 `json:"minor"`
	Patch uint64 `json:"patch"`
}

func (v ClusterVersion) String() string {
	return fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// ParseClusterVersion reads the triple at the start of s. Anything after
// it ("+k3s1", "-eks-1", "-00") is ignored.
func ParseClusterVersion(s string) (ClusterVersion, error) {
	v, _, err := parseTriple(s)
	if err != nil {
		return ClusterVersion{}, err
	}
	return ClusterVersion{Major: v.Major(), Minor: v.Minor(), Patch: v.Patch()}, nil
}

// ShortVersion returns "v" followed by the triple of a package version:
// "1.29.10-00" becomes "v1.29.10".
func ShortVersion(full string) (string, error) {
	v, _, err := parseTriple(full)
	if err != nil {
		return "", err
	}
	return "v" + v.String(), nil
}

// SelectLatest returns the greatest candidate that starts with
// "<major>.<minor>.". Candidates are ordered by their numeric triple, then
// by the numeric segments of the package revision ("-00", "-1.1").
// Candidates without a parsable triple are skipped.
func SelectLatest(candidates []string, major, minor uint64) (string, bool) {
	prefix := fmt.Sprintf("%d.%d.", major, minor)

	best := ""
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if !strings.HasPrefix(c, prefix) {
			continue
		}
		if _, _, err := parseTriple(c); err != nil {
			continue
		}
		if best == "" || comparePackageVersions(c, best) > 0 {
			best = c
		}
	}
	return best, best != ""
}

// parseTriple splits s into its semantic triple and the remaining suffix.
// semver.NewVersion is not used on the whole string because Debian
// revisions such as "-00" are not valid prereleases.
func parseTriple(s string) (*semver.Version, string, error) {
	m := triplePattern.FindStringSubmatchIndex(s)
	if m == nil {
		return nil, "", &VersionParseError{Input: s}
	}
	nums := make([]uint64, 3)
	for i := range nums {
		n, err := strconv.ParseUint(s[m[2+2*i]:m[3+2*i]], 10, 64)
		if err != nil {
			return nil, "", &VersionParseError{Input: s}
		}
		nums[i] = n
	}
	return semver.New(nums[0], nums[1], nums[2], "", ""), s[m[1]:], nil
}

// comparePackageVersions orders two versions that both hold a triple.
// Fully equal orderings fall back to string order so the result is stable.
func comparePackageVersions(a, b string) int {
	va, ra, _ := parseTriple(a)
	vb, rb, _ := parseTriple(b)
	if c := va.Compare(vb); c != 0 {
		return c
	}
	if c := compareRevisions(ra, rb); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// compareRevisions compares the digit runs of two revision suffixes in order.
// "-1.10" > "-1.9" > "-1" > "".
func compareRevisions(a, b string) int {
	na, nb := digitRuns(a), digitRuns(b)
	for i := 0; i < len(na) && i < len(nb); i++ {
		if na[i] != nb[i] {
			if na[i] < nb[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(na) < len(nb):
		return -1
	case len(na) > len(nb):
		return 1
	}
	return 0
}

func digitRuns(s string) []uint64 {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r < '0' || r > '9' })
	out := make([]uint64, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}
