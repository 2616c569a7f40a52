package readme

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// NoDescription is returned by ExtractDescription when no paragraph qualifies.
const NoDescription = "No description available"

const (
	minDescriptionLine = 20
	maxDescriptionLen  = 300
)

var (
	imageRe    = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]*)\)`)
	linkRe     = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	blankRunRe = regexp.MustCompile(`\n{3,}`)
)

// ExtractDescription returns the first prose paragraph of a README. Headers,
// blank lines and badges are skipped; the first line longer than 20
// characters starts the description and following lines are joined while
// the total stays under 300 characters. The next header ends it.
func ExtractDescription(content string) (desc string) {
	defer func() {
		if r := recover(); r != nil {
			desc = NoDescription
		}
	}()

	var (
		b     strings.Builder
		runes int
	)
	for _, raw := range splitLines(content) {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if headerRe.MatchString(line) {
			if runes > 0 {
				break
			}
			continue
		}
		if strings.HasPrefix(line, "![") || strings.HasPrefix(line, "[![") {
			continue
		}
		n := utf8.RuneCountInString(line)
		if runes == 0 {
			if n > minDescriptionLine {
				b.WriteString(line)
				runes = n
			}
			continue
		}
		if runes+1+n >= maxDescriptionLen {
			break
		}
		b.WriteByte(' ')
		b.WriteString(line)
		runes += 1 + n
	}

	if runes == 0 {
		return NoDescription
	}
	return b.String()
}

// CleanMarkdown strips decorative markdown: images become their alt text
// (or vanish when the alt text is too short to be meaningful), relative
// links become plain text, and runs of blank lines collapse to one.
// Absolute links are kept.
func CleanMarkdown(content string) (cleaned string) {
	defer func() {
		if r := recover(); r != nil {
			cleaned = content
		}
	}()

	out := strings.ReplaceAll(content, "\r\n", "\n")
	out = imageRe.ReplaceAllStringFunc(out, func(m string) string {
		alt := imageRe.FindStringSubmatch(m)[1]
		if len(alt) > 3 {
			return alt
		}
		return ""
	})
	out = linkRe.ReplaceAllStringFunc(out, func(m string) string {
		sub := linkRe.FindStringSubmatch(m)
		target := strings.TrimSpace(sub[2])
		if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
			return m
		}
		return sub[1]
	})
	out = blankRunRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
