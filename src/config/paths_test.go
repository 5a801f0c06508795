package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sofmeright/lintcascade/src/config"
)

func TestMatchGlob(t *testing.T) {
	tests := []struct {
		pattern, path string
		want          bool
	}{
		{"*.go", "main.go", true},
		{"*.go", "src/main.go", false},
		{"**/*.go", "src/pkg/main.go", true},
		{"**/*.go", "main.go", true},
		{"src/**", "src/a/b.txt", true},
		{"src/**", "other/a.txt", false},
		{"src/**/*_test.go", "src/a/b/c_test.go", true},
		{"src/**/*_test.go", "src/a/b/c.go", false},
		{"*/gen/**", "pkg/gen/x.go", true},
		{"*/gen/**", "pkg/src/x.go", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, config.MatchGlob(tt.pattern, tt.path))
		})
	}
}

func TestLintable(t *testing.T) {
	cfg := config.Empty("/repo")
	cfg.Included = []string{"src", "tools/*.go"}
	cfg.Excluded = []string{"src/generated/", "**/*_mock.go"}

	tests := []struct {
		path string
		want bool
	}{
		{"/repo/src/main.go", true},
		{"/repo/src/deep/nested/file.go", true},
		{"/repo/src/generated/api.go", false},
		{"/repo/src/store_mock.go", false},
		{"/repo/tools/gen.go", true},
		{"/repo/tools/sub/gen.go", false},
		{"/repo/docs/readme.md", false},
		{"/elsewhere/src/main.go", false},
		{"src/main.go", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.Lintable(tt.path))
		})
	}

	open := config.Empty("/repo")
	assert.True(t, open.Lintable("/elsewhere/x.go"))
	assert.True(t, open.Lintable("/repo/any/x.go"))
}
