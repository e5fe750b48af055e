package shell

import (
	"regexp"
	"strings"
)

// blocklist names commands whose first argument position is never safe
// for an agent-issued shell tool call, regardless of flags. Grounded on
// the teacher's shell_parser.go dangerous-command table.
var blocklist = map[string]string{
	"rm":        "recursive/forced deletion",
	"dd":        "raw block device writes",
	"mkfs":      "filesystem creation",
	"shutdown":  "host shutdown",
	"reboot":    "host reboot",
	"halt":      "host halt",
	"init":      "runlevel change",
	"chown":     "ownership change outside the workspace jail",
	"chmod":     "permission change outside the workspace jail",
	"sudo":      "privilege escalation",
	"su":        "privilege escalation",
	"passwd":    "credential mutation",
	"useradd":   "account mutation",
	"userdel":   "account mutation",
	"mkswap":    "swap device creation",
	"fdisk":     "partition table mutation",
	"parted":    "partition table mutation",
	"iptables":  "firewall mutation",
	"systemctl": "service manager mutation",
}

// wrappers are commands that re-exec their arguments, so a blocked command
// hidden behind one must still be caught. Grounded on the teacher's
// wrapper-bypass detection note in shell_parser.go.
var wrappers = map[string]bool{
	"env":       true,
	"nohup":     true,
	"setsid":    true,
	"nice":      true,
	"ionice":    true,
	"xargs":     true,
	"timeout":   true,
	"watch":     true,
	"osascript": true,
}

// versionSuffix strips a trailing version suffix like "3.11" or "-5" from
// an interpreter name so "python3.11" still resolves to "python" for
// blocklist purposes.
var versionSuffix = regexp.MustCompile(`[-._]?\d+(\.\d+)*$`)

func normalizeCommandName(tok string) string {
	base := tok
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	return versionSuffix.ReplaceAllString(base, "")
}

// analyzePipeline is layer 2: split the command into pipeline/sequence
// segments and check every segment's effective leading command (after
// unwrapping wrapper commands and stripping version suffixes) against the
// blocklist.
func analyzePipeline(command string) error {
	for _, segment := range splitSegments(command) {
		tokens := splitTokensQuoteAware(segment)
		if err := checkSegment(tokens); err != nil {
			return err
		}
	}
	return nil
}

// splitSegments splits on |, ;, &&, ||, & outside of quotes — the set of
// operators that start a new command in POSIX shell grammar.
func splitSegments(command string) []string {
	var segments []string
	var current strings.Builder
	inSingle, inDouble := false, false
	runes := []rune(command)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '\'' && !inDouble:
			inSingle = !inSingle
			current.WriteRune(c)
		case c == '"' && !inSingle:
			inDouble = !inDouble
			current.WriteRune(c)
		case !inSingle && !inDouble && (c == '|' || c == ';' || c == '&'):
			// consume a second matching char for &&/||
			if i+1 < len(runes) && runes[i+1] == c {
				i++
			}
			segments = append(segments, current.String())
			current.Reset()
		default:
			current.WriteRune(c)
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		segments = append(segments, current.String())
	}
	return segments
}

// splitTokensQuoteAware does simple whitespace tokenization that respects
// single/double quotes, enough to find the leading command name per
// segment (not a full shell-grammar parser).
func splitTokensQuoteAware(segment string) []string {
	var tokens []string
	var current strings.Builder
	inSingle, inDouble := false, false
	for _, c := range segment {
		switch {
		case c == '\'' && !inDouble:
			inSingle = !inSingle
		case c == '"' && !inSingle:
			inDouble = !inDouble
		case !inSingle && !inDouble && (c == ' ' || c == '\t'):
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(c)
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// isAssignment reports whether tok looks like a NAME=value environment
// assignment (only meaningful right after the "env" wrapper).
func isAssignment(tok string) bool {
	eq := strings.IndexByte(tok, '=')
	if eq <= 0 {
		return false
	}
	name := tok[:eq]
	for _, r := range name {
		if !(r == '_' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

func checkSegment(tokens []string) error {
	idx := 0
	for idx < len(tokens) {
		name := normalizeCommandName(tokens[idx])
		if reason, blocked := blocklist[name]; blocked {
			return &ErrRejected{Layer: "pipeline_analysis", Reason: name + ": " + reason}
		}
		if !wrappers[name] {
			return nil
		}
		// Unwrap: skip flags and, for `env`, leading VAR=value assignments,
		// then keep checking the command it wraps (the "wrapper bypass"
		// case — e.g. `env FOO=bar rm -rf /` or `xargs -I{} rm {}`).
		idx++
		for idx < len(tokens) && (strings.HasPrefix(tokens[idx], "-") || isAssignment(tokens[idx])) {
			idx++
		}
	}
	return nil
}
