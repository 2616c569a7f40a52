package hub

import (
	"regexp"
	"strings"
)

// OfficialNamespace is the namespace Docker Hub uses for official images.
const OfficialNamespace = "library"

// DefaultTag is used when a reference carries no tag.
const DefaultTag = "latest"

var (
	componentPattern = regexp.MustCompile(`^[a-z0-9]+(?:(?:[._]|__|-+)[a-z0-9]+)*$`)
	tagPattern       = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]{0,127}$`)
)

// Reference identifies an image on Docker Hub.
type Reference struct {
	Namespace string
	Name      string
	Tag       string
}

// FullName returns "namespace/name".
func (r Reference) FullName() string { return r.Namespace + "/" + r.Name }

// IsOfficial reports whether the image lives in the official namespace.
func (r Reference) IsOfficial() bool { return r.Namespace == OfficialNamespace }

// String returns the short form users type: official images drop the
// "library/" prefix.
func (r Reference) String() string {
	name := r.FullName()
	if r.IsOfficial() {
		name = r.Name
	}
	return name + ":" + r.Tag
}

// ParseReference parses "name", "namespace/name" or either form with a
// ":tag" suffix. A leading "docker.io/" registry host is accepted.
func ParseReference(s string) (Reference, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Reference{}, NewValidationError("package_name", "must not be empty")
	}
	s = strings.TrimPrefix(s, "docker.io/")
	s = strings.TrimPrefix(s, "index.docker.io/")

	ref := Reference{Tag: DefaultTag}
	if i := strings.LastIndex(s, ":"); i > strings.LastIndex(s, "/") {
		ref.Tag = s[i+1:]
		s = s[:i]
		if !tagPattern.MatchString(ref.Tag) {
			return Reference{}, NewValidationError("version", "malformed tag "+ref.Tag)
		}
	}

	parts := strings.Split(s, "/")
	switch len(parts) {
	case 1:
		ref.Namespace, ref.Name = OfficialNamespace, parts[0]
	case 2:
		ref.Namespace, ref.Name = parts[0], parts[1]
	default:
		return Reference{}, NewValidationError("package_name", "expected [namespace/]name, got "+s)
	}
	if !componentPattern.MatchString(ref.Namespace) || !componentPattern.MatchString(ref.Name) {
		return Reference{}, NewValidationError("package_name", "malformed image name "+s)
	}
	return ref, nil
}

// WithTag returns a copy of r pointing at tag. An empty tag keeps r.Tag.
func (r Reference) WithTag(tag string) (Reference, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return r, nil
	}
	if !tagPattern.MatchString(tag) {
		return Reference{}, NewValidationError("version", "malformed tag "+tag)
	}
	r.Tag = tag
	return r, nil
}
