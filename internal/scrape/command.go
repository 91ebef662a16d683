package scrape

import (
	"regexp"
	"strings"
)

// Command is a parsed "read about X" style request.
type Command struct {
	// Verb is "read", "scrape" or "summarize".
	Verb    string
	Subject string
	// Selector is empty unless the message carried a selector/id/class/tag
	// hint.
	Selector string
}

var commandRE = regexp.MustCompile(`(?i)^(read(?:\s+about)?|scrape|summarize)\s+(.+?)(?:\s+(selector|id|class|tag)\s*:\s*([#.\w\- ]+))?\s*$`)

// ParseCommand recognizes
//
//	read [about] <subject> [selector: S | id: V | class: V | tag: V]
//	scrape <subject> [...]
//	summarize <subject> [...]
//
// id and class hints become "#V" and ".V"; tag hints are lower-cased.
func ParseCommand(message string) (Command, bool) {
	m := commandRE.FindStringSubmatch(strings.TrimSpace(message))
	if m == nil {
		return Command{}, false
	}
	cmd := Command{
		Verb:    strings.ToLower(strings.Fields(m[1])[0]),
		Subject: strings.TrimSpace(m[2]),
	}
	val := strings.TrimSpace(m[4])
	if val == "" {
		return cmd, true
	}
	switch strings.ToLower(m[3]) {
	case "selector":
		cmd.Selector = val
	case "id":
		cmd.Selector = "#" + val
	case "class":
		cmd.Selector = "." + val
	case "tag":
		cmd.Selector = strings.ToLower(val)
	}
	return cmd, true
}
