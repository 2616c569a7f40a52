package readme

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExtractDescription(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "first paragraph",
			content: "# Test Image\n\nThis is a test image for Docker.\n\n## Usage\n\nRun it with the defaults please.\n",
			want:    "This is a test image for Docker.",
		},
		{
			name:    "empty",
			content: "",
			want:    NoDescription,
		},
		{
			name:    "headers only",
			content: "# Title\n\n## Section\n",
			want:    NoDescription,
		},
		{
			name:    "skips badges and short lines",
			content: "[![Build](https://ci/badge.svg)](https://ci)\n![logo](logo.png)\nShort line\n\nRedis is an in-memory data structure store.\nIt is used as a cache.\n",
			want:    "Redis is an in-memory data structure store. It is used as a cache.",
		},
		{
			name:    "fence markers are too short to start",
			content: "```\n# not a header but long enough to count\n```\nPostgreSQL object-relational database system.\n",
			want:    "PostgreSQL object-relational database system.",
		},
		{
			name:    "code lines are not special",
			content: "```bash\nexport DATABASE_URL=postgres://localhost/app\n",
			want:    "export DATABASE_URL=postgres://localhost/app",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractDescription(tt.content); got != tt.want {
				t.Errorf("ExtractDescription() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractDescription_LengthBound(t *testing.T) {
	line := strings.Repeat("word ", 20) // 100 chars with trailing space trimmed to 99
	content := strings.Repeat(line+"\n", 10)
	got := ExtractDescription(content)
	if len(got) >= maxDescriptionLen {
		t.Errorf("description length %d, want < %d", len(got), maxDescriptionLen)
	}
	if !strings.HasPrefix(got, strings.TrimSpace(line)) {
		t.Errorf("description does not start with the first line: %q", got)
	}
	// 99 + 1 + 99 = 199; a third line would reach 299, still under the bound.
	if want := 3*99 + 2; len(got) != want {
		t.Errorf("description length = %d, want %d", len(got), want)
	}
}

func TestExtractDescription_CountsCharacters(t *testing.T) {
	// 9 characters but 27 bytes.
	if got := ExtractDescription("日本語の説明文です\n"); got != NoDescription {
		t.Errorf("short multi-byte line started a description: %q", got)
	}

	first := strings.Repeat("é", 150)
	second := strings.Repeat("ü", 140)
	got := ExtractDescription(first + "\n" + second + "\n")
	// 150 + 1 + 140 = 291 characters, under the bound despite 581 bytes.
	if want := first + " " + second; got != want {
		t.Errorf("ExtractDescription() joined %d characters, want %d",
			utf8.RuneCountInString(got), utf8.RuneCountInString(want))
	}
}

func TestCleanMarkdown(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "badge with alt",
			content: "![Badge](https://x/badge.png) Some text",
			want:    "Badge Some text",
		},
		{
			name:    "short alt removed",
			content: "![ci](https://x/ci.png) Text",
			want:    "Text",
		},
		{
			name:    "relative link",
			content: "See [the docs](docs/README.md) for details.",
			want:    "See the docs for details.",
		},
		{
			name:    "absolute link kept",
			content: "Visit [Docker](https://www.docker.com).",
			want:    "Visit [Docker](https://www.docker.com).",
		},
		{
			name:    "linked badge",
			content: "[![Build Status](https://ci/badge.svg)](https://ci/job)",
			want:    "[Build Status](https://ci/job)",
		},
		{
			name:    "blank runs",
			content: "\n\nfirst\n\n\n\nsecond\n\n\n",
			want:    "first\n\nsecond",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanMarkdown(tt.content); got != tt.want {
				t.Errorf("CleanMarkdown() = %q, want %q", got, tt.want)
			}
		})
	}
}
