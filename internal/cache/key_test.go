package cache

import (
	"testing"
	"time"
)

func TestImageInfoKey_Stable(t *testing.T) {
	a := ImageInfoKey("library/nginx", "latest")
	b := ImageInfoKey("library/nginx", "latest")
	if a != b {
		t.Errorf("keys differ for identical input: %q vs %q", a, b)
	}
	if a != "img_info:library/nginx:latest" {
		t.Errorf("unexpected key %q", a)
	}
	if a == ImageInfoKey("library/redis", "latest") {
		t.Error("keys for different images must differ")
	}
}

func TestKeyFormats(t *testing.T) {
	yes, no := true, false
	day := time.Date(2026, 3, 9, 23, 59, 0, 0, time.UTC)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"readme", ImageReadmeKey("bitnami/redis", "7.2"), "img_readme:bitnami/redis:7.2"},
		{"tags", TagsKey("library/nginx", day), "tags:library/nginx:2026-03-09"},
		{"search plain", SearchKey("postgres", 20, nil, nil), "search:postgres:20"},
		{"search official", SearchKey("postgres", 20, &yes, nil), "search:postgres:20:official:true"},
		{"search both", SearchKey("pg", 5, &no, &yes), "search:pg:5:official:false:automated:true"},
		{"search automated", SearchKey("pg", 5, nil, &no), "search:pg:5:automated:false"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
