// Package voice matches speech transcripts against wake phrases and the
// command table, and keeps a speech recognizer listening continuously.
package voice

import (
	"sort"
	"strings"
	"unicode"

	"github.com/ayusman/mudra/internal/command"
)

// DefaultWakePhrases returns the stock wake phrases.
func DefaultWakePhrases() []string {
	return []string{"hey bank", "hello bank", "bank assistant", "hey banking", "hello banking"}
}

// DefaultFillers returns the stock filler prefixes stripped from commands.
func DefaultFillers() []string {
	return []string{"please", "can you", "could you", "i want to", "i need to", "help me"}
}

// Utterance is a parsed final transcript.
type Utterance struct {
	// Wake is true when a wake phrase was found.
	Wake bool
	// Phrase is the wake phrase that matched.
	Phrase string
	// Command is the remaining text with the wake phrase and fillers removed.
	Command string
}

// Matcher parses transcripts and maps commands to table definitions.
type Matcher struct {
	wake    []string
	fillers []string
	table   *command.Table
}

// NewMatcher creates a Matcher. Phrases are compared lowercased, and longer
// wake phrases are tried first so "hey banking" wins over "hey bank".
func NewMatcher(table *command.Table, wakePhrases, fillers []string) *Matcher {
	wake := normalizeAll(wakePhrases)
	sort.SliceStable(wake, func(i, j int) bool { return len(wake[i]) > len(wake[j]) })
	return &Matcher{
		wake:    wake,
		fillers: normalizeAll(fillers),
		table:   table,
	}
}

// Parse normalizes the transcript, finds a wake phrase occurring anywhere in
// it, removes that occurrence and strips leading fillers.
func (m *Matcher) Parse(transcript string) Utterance {
	text := normalize(transcript)

	var u Utterance
	for _, w := range m.wake {
		if i := strings.Index(text, w); i >= 0 {
			u.Wake = true
			u.Phrase = w
			text = normalize(text[:i] + " " + text[i+len(w):])
			break
		}
	}

	u.Command = m.stripFillers(text)
	return u
}

// stripFillers removes leading filler prefixes, repeatedly, unless doing so
// would leave nothing.
func (m *Matcher) stripFillers(text string) string {
	for {
		stripped := false
		for _, f := range m.fillers {
			rest, ok := cutWord(text, f)
			if !ok || rest == "" {
				continue
			}
			text = rest
			stripped = true
			break
		}
		if !stripped {
			return text
		}
	}
}

// cutWord removes prefix from s when it is followed by a word boundary.
func cutWord(s, prefix string) (string, bool) {
	rest, ok := strings.CutPrefix(s, prefix)
	if !ok {
		return s, false
	}
	if rest != "" && rest[0] != ' ' {
		return s, false
	}
	return strings.TrimSpace(rest), true
}

// Match finds the definition for a command. Keyword categories are tried in
// table order; if none hits, literal phrases are compared in both directions.
func (m *Matcher) Match(cmd string) (command.Definition, bool) {
	cmd = normalize(cmd)
	if cmd == "" {
		return command.Definition{}, false
	}

	defs := m.table.Definitions()
	for _, d := range defs {
		for _, kw := range d.Keywords {
			if strings.Contains(cmd, kw) {
				return d, true
			}
		}
	}

	for _, d := range defs {
		for _, p := range d.Phrases {
			if strings.Contains(cmd, p) || strings.Contains(p, cmd) {
				return d, true
			}
		}
	}

	return command.Definition{}, false
}

// normalize lowercases s, turns punctuation other than apostrophes into
// spaces and collapses whitespace.
func normalize(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) && r != '\'' {
			return ' '
		}
		return unicode.ToLower(r)
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func normalizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = normalize(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
