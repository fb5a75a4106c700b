package manager

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ImportedSSHGroup is the group imported OpenSSH hosts are listed under.
const ImportedSSHGroup = importedGroupPrefix + "SSH config"

// SSHHostEntry represents a single, literal Host alias parsed from an OpenSSH
// client configuration file (e.g., ~/.ssh/config). Wildcard host patterns are
// skipped.
type SSHHostEntry struct {
	// Alias is the Host alias used on the ssh command line (e.g., "prod-db-1").
	Alias string

	// Values parsed from the Host block (last-wins semantics).
	HostName  string
	User      string
	Port      int
	ProxyJump string

	// Source file path and starting line of the Host block (best-effort).
	Source    string
	StartLine int
}

// DefaultSSHConfigPath returns ~/.ssh/config.
func DefaultSSHConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ssh", "config"), nil
}

// LoadSSHConfig loads one or more SSH config files and returns literal Host
// alias entries. It processes Include directives (globs supported).
// Later files and later Host blocks override earlier ones for the same alias.
func LoadSSHConfig(paths ...string) ([]SSHHostEntry, error) {
	if len(paths) == 0 {
		return nil, errors.New("no ssh config paths provided")
	}

	visited := map[string]struct{}{}
	all := make([]SSHHostEntry, 0, 128)
	indexByAlias := map[string]int{}

	for _, p := range paths {
		entries, err := parseSSHConfigRecursive(expandPath(p), visited)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if prev, ok := indexByAlias[e.Alias]; ok {
				all[prev] = e
			} else {
				indexByAlias[e.Alias] = len(all)
				all = append(all, e)
			}
		}
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].Alias < all[j].Alias
	})
	return all, nil
}

// SSHProfiles converts parsed entries into read-only ssh profiles in the
// imported group. The alias is the connection target, so ssh applies the
// rest of the block itself; HostName (when set) is what gets probed.
func SSHProfiles(entries []SSHHostEntry) []RawProfile {
	out := make([]RawProfile, 0, len(entries))
	for _, e := range entries {
		opts := map[string]any{
			"alias": e.Alias,
			"host":  firstNonEmpty(e.HostName, e.Alias),
		}
		if e.User != "" {
			opts["user"] = e.User
		}
		if e.Port > 0 {
			opts["port"] = e.Port
		}
		if pj := normalizeProxyJump(e.ProxyJump); pj != "" {
			opts["jump"] = pj
		}
		out = append(out, RawProfile{
			ID:      "ssh:config:" + e.Alias,
			Type:    "ssh",
			Name:    e.Alias,
			Group:   GroupValue(ImportedSSHGroup),
			Options: opts,
		})
	}
	return out
}

// --------------------
// Parsing internals
// --------------------

type hostBlock struct {
	patterns  []string
	settings  map[string]string
	source    string
	startLine int
}

func newHostBlock(source string, startLine int) *hostBlock {
	return &hostBlock{
		settings:  map[string]string{},
		source:    source,
		startLine: startLine,
	}
}

func (hb *hostBlock) set(key, value string) {
	k := strings.ToLower(strings.TrimSpace(key))
	if k == "" {
		return
	}
	hb.settings[k] = strings.TrimSpace(value)
}

func (hb *hostBlock) toEntries() []SSHHostEntry {
	port := 0
	if s := hb.settings["port"]; s != "" {
		if p, err := strconv.Atoi(s); err == nil && p > 0 {
			port = p
		}
	}

	entries := make([]SSHHostEntry, 0, len(hb.patterns))
	for _, pat := range hb.patterns {
		pat = strings.TrimSpace(pat)
		if !isLiteralHostPattern(pat) {
			continue
		}
		entries = append(entries, SSHHostEntry{
			Alias:     pat,
			HostName:  hb.settings["hostname"],
			User:      hb.settings["user"],
			Port:      port,
			ProxyJump: hb.settings["proxyjump"],
			Source:    hb.source,
			StartLine: hb.startLine,
		})
	}
	return entries
}

func parseSSHConfigRecursive(path string, visited map[string]struct{}) ([]SSHHostEntry, error) {
	var out []SSHHostEntry

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if _, ok := visited[abs]; ok {
		return out, nil
	}
	visited[abs] = struct{}{}

	f, err := os.Open(abs)
	if err != nil {
		// Include globs commonly point at files that do not exist.
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("open ssh config %s: %w", abs, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	var current *hostBlock
	lineNo := 0

	flush := func() {
		if current != nil {
			out = append(out, current.toEntries()...)
			current = nil
		}
	}

	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(stripSSHInlineComment(sc.Text()))
		if line == "" {
			continue
		}

		key, val, ok := splitKeyVal(line)
		if !ok {
			continue
		}

		switch strings.ToLower(key) {
		case "host":
			flush()
			current = newHostBlock(abs, lineNo)
			current.patterns = strings.Fields(val)
		case "include":
			flush()
			for _, inc := range expandIncludePatterns(abs, val) {
				children, err := parseSSHConfigRecursive(inc, visited)
				if err != nil {
					return nil, err
				}
				out = append(out, children...)
			}
		case "match":
			// Match conditions are not evaluated; settings up to the next Host are dropped.
			flush()
		default:
			if current != nil {
				current.set(key, val)
			}
		}
	}
	flush()

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan ssh config %s: %w", abs, err)
	}
	return out, nil
}

// stripSSHInlineComment removes a '#' comment unless it is inside quotes.
func stripSSHInlineComment(s string) string {
	inSingle, inDouble := false, false
	for i, r := range s {
		switch r {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case '#':
			if !inSingle && !inDouble {
				return strings.TrimRight(s[:i], " \t")
			}
		}
	}
	return s
}

// splitKeyVal accepts "Key Value" and "Key=Value".
func splitKeyVal(line string) (key, val string, ok bool) {
	i := strings.IndexAny(line, " \t=")
	if i < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:i])
	val = strings.TrimSpace(strings.TrimLeft(line[i+1:], " \t="))
	if key == "" {
		return "", "", false
	}
	return key, val, true
}

func expandIncludePatterns(baseFile, pattern string) []string {
	pattern = expandPath(strings.TrimSpace(pattern))
	if pattern == "" {
		return nil
	}
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(filepath.Dir(baseFile), pattern)
	}
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err == nil && !fi.IsDir() {
			out = append(out, m)
		}
	}
	return out
}

// isLiteralHostPattern rejects negations and the '*', '?', '[]' wildcards.
func isLiteralHostPattern(p string) bool {
	if p == "" || strings.HasPrefix(p, "!") {
		return false
	}
	if strings.ContainsAny(p, "*?[] \t") {
		return false
	}
	return true
}

// normalizeProxyJump extracts the first hop of ProxyJump without its port,
// returning "[user@]host".
func normalizeProxyJump(pj string) string {
	pj = strings.TrimSpace(pj)
	if pj == "" || strings.EqualFold(pj, "none") {
		return ""
	}
	if i := strings.IndexByte(pj, ','); i >= 0 {
		pj = strings.TrimSpace(pj[:i])
	}
	if colon := strings.LastIndexByte(pj, ':'); colon >= 0 && colon > strings.LastIndexByte(pj, '@') {
		if _, err := strconv.Atoi(pj[colon+1:]); err == nil {
			pj = pj[:colon]
		}
	}
	return pj
}
