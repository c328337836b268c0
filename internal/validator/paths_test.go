package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestingPath(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		for _, path := range []string{"Test.java", "assignments/1/bundle.zip", "a b/c.txt"} {
			assert.True(t, ValidTestingPath(path), "should accept %q", path)
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		for _, path := range []string{"", "dir/", "bad\x00name", "line\nbreak", string([]byte{0xff})} {
			assert.False(t, ValidTestingPath(path), "should reject %q", path)
		}
	})
}

func TestFilename(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		assert.True(t, ValidFilename("Solution.java"), "plain name")
		assert.True(t, ValidFilename("main.py"), "plain name")
	})

	t.Run("Invalid", func(t *testing.T) {
		for _, name := range []string{"", ".", "..", "../x", "a/b", "/etc/passwd", `a\b`} {
			assert.False(t, ValidFilename(name), "should reject %q", name)
		}
	})
}

func TestStructTags(t *testing.T) {
	type request struct {
		Path string `json:"testingPath" validate:"required,testingpath"`
		Name string `json:"filename"    validate:"required,filename"`
	}

	v := Create()

	require.NoError(t, v.Validate(request{Path: "bundle.zip", Name: "Test.java"}), "valid request")

	err := v.Validate(request{Path: "dir/", Name: "../Test.java"})
	require.Error(t, err, "invalid request")
	assert.Contains(t, err.Error(), "testingPath", "error should use json name")
	assert.Contains(t, err.Error(), "filename", "error should use json name")
}
