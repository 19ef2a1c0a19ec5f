package moodle

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/venu-sivanadham/moodle-to-azure-aks/config"
)

// config.php is treated as an opaque text blob and mutated with
// regular expressions, the same way the image's shell tooling did.
// The injected web-root block is fenced with markers so re-applying
// it is idempotent.
const (
	wwwrootBegin = "// BEGIN moodle-init web root"
	wwwrootEnd   = "// END moodle-init web root"
)

var (
	wwwrootBlockRe = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(wwwrootBegin) + `.*?` + regexp.QuoteMeta(wwwrootEnd))
	wwwrootLineRe  = regexp.MustCompile(`(?m)^\s*\$CFG->wwwroot\s*=.*?;[^\n]*`)
	datarootLineRe = regexp.MustCompile(`(?m)^(\s*\$CFG->dataroot\s*=\s*)'[^']*'(\s*;)`)
)

// wwwrootBlock renders the PHP snippet that replaces the static
// $CFG->wwwroot assignment. The host is taken from the incoming
// request when available so a single image serves port-forwards and
// ingress hostnames alike; the configured host is the fallback.
func wwwrootBlock(site config.Site) string {
	scheme := "http"
	if site.SSLProxy {
		scheme = "https"
	}
	var sb strings.Builder
	sb.WriteString(wwwrootBegin + "\n")
	fmt.Fprintf(&sb, "$host = empty($_SERVER['HTTP_HOST']) ? '%s' : $_SERVER['HTTP_HOST'];\n", site.Host)
	fmt.Fprintf(&sb, "$CFG->wwwroot = '%s://' . $host;\n", scheme)
	if site.SSLProxy {
		sb.WriteString("$CFG->sslproxy = true;\n")
	}
	if site.ReverseProxy {
		sb.WriteString("$CFG->reverseproxy = true;\n")
	}
	sb.WriteString(wwwrootEnd)
	return sb.String()
}

// PatchWWWRoot rewrites the web-root section of the given config.php
// contents. It replaces a previously injected block if present,
// otherwise the plain $CFG->wwwroot assignment.
func PatchWWWRoot(contents string, site config.Site) (string, error) {
	block := wwwrootBlock(site)
	if wwwrootBlockRe.MatchString(contents) {
		// The block is full of $CFG/$host/$_SERVER; substitute it
		// literally so those aren't taken as group references.
		return wwwrootBlockRe.ReplaceAllStringFunc(contents, func(string) string {
			return block
		}), nil
	}
	if !wwwrootLineRe.MatchString(contents) {
		return "", fmt.Errorf("no $CFG->wwwroot assignment found")
	}
	replaced := false
	out := wwwrootLineRe.ReplaceAllStringFunc(contents, func(string) string {
		if replaced {
			return ""
		}
		replaced = true
		return block
	})
	return out, nil
}

// PatchDataRoot points $CFG->dataroot at the persistent volume.
func PatchDataRoot(contents, dataDir string) (string, error) {
	if !datarootLineRe.MatchString(contents) {
		return "", fmt.Errorf("no $CFG->dataroot assignment found")
	}
	out := datarootLineRe.ReplaceAllStringFunc(contents, func(m string) string {
		sub := datarootLineRe.FindStringSubmatch(m)
		return sub[1] + "'" + dataDir + "'" + sub[2]
	})
	return out, nil
}

// UpdateConfigFile applies the web-root and dataroot patches to the
// config.php at path, writing the file back only when something
// actually changed.
func UpdateConfigFile(path string, site config.Site, dataDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	contents := string(data)
	patched, err := PatchWWWRoot(contents, site)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	patched, err = PatchDataRoot(patched, dataDir)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if patched == contents {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(patched), info.Mode().Perm())
}
