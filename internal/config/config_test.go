package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classgrade/autograder/internal/config"
)

func TestParseProfiles(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		profiles, err := config.ParseProfiles([]byte(`
Java:
  filename: Solution.java
  image: grader-java:latest
  detect: [Java]
python:
  filename: solution.py
  image: grader-python:latest
`))
		require.NoError(t, err, "failed to parse profiles")
		require.Len(t, profiles, 2, "wrong number of profiles")

		java := profiles["java"]
		require.NotNil(t, java, "names should be lowercased")
		assert.Equal(t, "java", java.Name, "name should be set from key")
		assert.Equal(t, "Solution.java", java.Filename, "wrong filename")
		assert.Equal(t, "grader-java:latest", java.Image, "wrong image")
		assert.Equal(t, []string{"Java"}, java.Detect, "wrong detect list")
	})

	t.Run("UnknownField", func(t *testing.T) {
		_, err := config.ParseProfiles([]byte("java:\n  filname: Solution.java\n"))
		require.Error(t, err, "typos should be rejected")
	})

	t.Run("EmptyProfile", func(t *testing.T) {
		_, err := config.ParseProfiles([]byte("java:\n"))
		require.Error(t, err, "empty profile should be rejected")
	})
}

func TestLoadProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "languages.yaml")
	require.NoError(
		t,
		os.WriteFile(path, []byte("c:\n  filename: main.c\n  image: grader-c\n"), 0o600),
		"failed to write profile file",
	)

	profiles, err := config.LoadProfiles(path)
	require.NoError(t, err, "failed to load profiles")
	assert.Equal(t, "main.c", profiles["c"].Filename, "wrong filename")

	_, err = config.LoadProfiles(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err, "missing file should fail")
}

func TestProfileLookup(t *testing.T) {
	grading := config.GradingConfig{
		DefaultLanguage: "java",
		Languages: map[string]*config.Profile{
			"java":   {Name: "java", Filename: "Solution.java", Image: "java"},
			"python": {Name: "python", Filename: "solution.py", Image: "python"},
		},
	}

	profile, ok := grading.Profile("")
	require.True(t, ok, "empty language should resolve to default")
	assert.Equal(t, "java", profile.Name, "wrong default profile")

	profile, ok = grading.Profile("Python")
	require.True(t, ok, "lookup should be case insensitive")
	assert.Equal(t, "solution.py", profile.Filename, "wrong profile")

	_, ok = grading.Profile("cobol")
	assert.False(t, ok, "unknown language should not resolve")
}
