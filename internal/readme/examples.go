// Package readme turns Docker Hub README markdown into structured data:
// usage examples pulled from "usage"-style sections, a short description
// paragraph, and a cleaned copy of the text without badges and relative
// links. All functions are pure and never panic; on unexpected input they
// fall back to empty or unchanged results.
package readme

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxExamples caps the number of usage examples returned per README.
const MaxExamples = 10

// UsageExample is one fenced code block taken from a usage section.
type UsageExample struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Code        string `json:"code"`
	Language    string `json:"language"`
}

var (
	headerRe = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)

	// usageHeaderRe matches header text announcing usage instructions,
	// anywhere in the header ("Docker Usage", "Advanced Examples").
	usageHeaderRe = regexp.MustCompile(`(?i)\b(how to use|getting started|quick ?start|basic usage|docker run|examples?|usage|using|use|running)\b`)

	fenceRe  = regexp.MustCompile("^```\\s*([^\\s`]*)")
	bulletRe = regexp.MustCompile(`^[-*+]\s+`)

	codeEdgeRe     = regexp.MustCompile(`^[{}\[\]();,]|[{}\[\]();,]$`)
	dockerInstrRe  = regexp.MustCompile(`^(FROM|RUN|CMD|COPY|ADD|ENV|EXPOSE|WORKDIR|ENTRYPOINT|VOLUME|USER|ARG|LABEL|HEALTHCHECK|SHELL|ONBUILD|STOPSIGNAL)\s`)
	dockerCmdRe    = regexp.MustCompile(`^docker\s`)
	promptOrNoteRe = regexp.MustCompile(`^(\$|//|#)`)
)

var languageAliases = map[string]string{
	"sh":    "bash",
	"shell": "bash",
	"yml":   "yaml",
	"md":    "markdown",
	"py":    "python",
	"js":    "javascript",
	"ts":    "typescript",
}

// section is a run of lines opened by a usage header. lines includes the
// header itself.
type section struct {
	depth int
	lines []string
}

// ParseUsageExamples extracts fenced code blocks from the usage sections of
// a README. The result keeps document order, drops blocks whose code only
// differs in whitespace, and holds at most MaxExamples entries. It returns
// an empty list when includeExamples is false or content is blank.
func ParseUsageExamples(content string, includeExamples bool) (examples []UsageExample) {
	examples = []UsageExample{}
	if !includeExamples || strings.TrimSpace(content) == "" {
		return examples
	}
	defer func() {
		if r := recover(); r != nil {
			examples = []UsageExample{}
		}
	}()

	var all []UsageExample
	for _, sec := range usageSections(splitLines(content)) {
		all = append(all, sectionExamples(sec)...)
	}

	seen := make(map[string]struct{}, len(all))
	for _, ex := range all {
		key := strings.Join(strings.Fields(ex.Code), " ")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		examples = append(examples, ex)
		if len(examples) == MaxExamples {
			break
		}
	}
	return examples
}

// usageSections segments lines by header depth. A section opens at a usage
// header and closes before the next header of equal or lower depth; deeper
// headers stay inside it. Lines inside code fences are never headers.
func usageSections(lines []string) []section {
	var (
		out     []section
		current *section
		inFence bool
	)
	for _, line := range lines {
		if fenceRe.MatchString(strings.TrimSpace(line)) {
			inFence = !inFence
		} else if !inFence {
			if m := headerRe.FindStringSubmatch(line); m != nil {
				depth := len(m[1])
				if current != nil && depth <= current.depth {
					out = append(out, *current)
					current = nil
				}
				if current == nil && usageHeaderRe.MatchString(strings.TrimSpace(m[2])) {
					current = &section{depth: depth}
				}
			}
		}
		if current != nil {
			current.lines = append(current.lines, line)
		}
	}
	if current != nil {
		out = append(out, *current)
	}
	return out
}

func sectionExamples(sec section) []UsageExample {
	var out []UsageExample
	lines := sec.lines
	for i := 0; i < len(lines); i++ {
		m := fenceRe.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			continue
		}
		start := i
		end := -1
		for j := i + 1; j < len(lines); j++ {
			if strings.HasPrefix(strings.TrimSpace(lines[j]), "```") {
				end = j
				break
			}
		}
		if end < 0 {
			// Unterminated fence: nothing more to extract.
			break
		}
		i = end

		code := strings.TrimSpace(strings.Join(lines[start+1:end], "\n"))
		if code == "" {
			continue
		}
		lang := NormalizeLanguage(m[1])
		out = append(out, UsageExample{
			Title:       inferTitle(code, lang),
			Description: describe(lines[:start]),
			Code:        code,
			Language:    lang,
		})
	}
	return out
}

// NormalizeLanguage lowercases a fence info string and maps common aliases.
// An empty tag becomes "text".
func NormalizeLanguage(tag string) string {
	lang := strings.ToLower(strings.TrimSpace(tag))
	if lang == "" {
		return "text"
	}
	if alias, ok := languageAliases[lang]; ok {
		return alias
	}
	return lang
}

func inferTitle(code, lang string) string {
	first := strings.ToLower(code)
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}

	switch lang {
	case "bash", "sh", "shell", "console", "zsh":
		switch {
		case strings.Contains(first, "docker pull"):
			return "Pull Image"
		case strings.Contains(first, "docker run"):
			return "Run Container"
		case strings.Contains(first, "docker build"):
			return "Build Image"
		}
		return "Command Line Usage"
	case "dockerfile":
		return "Dockerfile Example"
	case "yaml", "yml":
		lower := strings.ToLower(code)
		if strings.Contains(lower, "version:") &&
			(strings.Contains(lower, "services:") || strings.Contains(lower, "docker")) {
			return "Docker Compose"
		}
		return "Configuration"
	case "json":
		return "Configuration"
	case "javascript", "js":
		return "JavaScript Integration"
	case "python", "py":
		return "Python Integration"
	}
	return "Code Example"
}

// describe looks at the closest non-empty line above a code block. It is
// used as the description only if it is prose of a reasonable length.
func describe(before []string) string {
	for i := len(before) - 1; i >= 0; i-- {
		line := strings.TrimSpace(before[i])
		if line == "" {
			continue
		}
		if headerRe.MatchString(line) {
			return ""
		}
		if n := utf8.RuneCountInString(line); n <= 10 || n >= 200 || looksLikeCode(line) {
			return ""
		}
		return strings.TrimSpace(bulletRe.ReplaceAllString(line, ""))
	}
	return ""
}

func looksLikeCode(line string) bool {
	return codeEdgeRe.MatchString(line) ||
		dockerInstrRe.MatchString(line) ||
		dockerCmdRe.MatchString(line) ||
		promptOrNoteRe.MatchString(line)
}

func splitLines(content string) []string {
	return strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
}
