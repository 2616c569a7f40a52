package cache

import (
	"strconv"
	"strings"
	"time"
)

// Key prefixes. Keys are plain strings so they stay readable in logs.
const (
	PrefixImageInfo   = "img_info"
	PrefixImageReadme = "img_readme"
	PrefixTags        = "tags"
	PrefixSearch      = "search"
)

// CreateKey joins prefix and parts with ":".
func CreateKey(prefix string, parts ...string) string {
	return strings.Join(append([]string{prefix}, parts...), ":")
}

// ImageInfoKey is "img_info:<namespace/name>:<tag>".
func ImageInfoKey(fullName, tag string) string {
	return CreateKey(PrefixImageInfo, fullName, tag)
}

// ImageReadmeKey is "img_readme:<namespace/name>:<tag>".
func ImageReadmeKey(fullName, tag string) string {
	return CreateKey(PrefixImageReadme, fullName, tag)
}

// TagsKey is "tags:<namespace/name>:<YYYY-MM-DD>" so tag lists roll over daily.
func TagsKey(fullName string, day time.Time) string {
	return CreateKey(PrefixTags, fullName, day.UTC().Format(time.DateOnly))
}

// SearchKey is "search:<query>:<limit>" with ":official:<bool>" and
// ":automated:<bool>" appended for filters that are set.
func SearchKey(query string, limit int, official, automated *bool) string {
	parts := []string{query, strconv.Itoa(limit)}
	if official != nil {
		parts = append(parts, "official", strconv.FormatBool(*official))
	}
	if automated != nil {
		parts = append(parts, "automated", strconv.FormatBool(*automated))
	}
	return CreateKey(PrefixSearch, parts...)
}
