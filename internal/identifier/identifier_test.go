package identifier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classgrade/autograder/internal/config"
	"github.com/classgrade/autograder/internal/identifier"
)

var profiles = map[string]*config.Profile{
	"java":   {Filename: "Solution.java", Image: "grader-java", Detect: []string{"Java"}},
	"python": {Filename: "main.py", Image: "grader-python", Detect: []string{"Python"}},
	"c":      {Filename: "main.c", Image: "grader-c", Detect: []string{"C", "C++"}},
}

func TestDetect(t *testing.T) {
	detector := identifier.NewDetector(profiles)

	t.Run("Extension", func(t *testing.T) {
		lang, ok := detector.Detect("Solution.java", []byte("class Solution {}"))
		require.True(t, ok, "expected a match")
		assert.Equal(t, identifier.Language("java"), lang, "wrong language")
	})

	t.Run("Shebang", func(t *testing.T) {
		lang, ok := detector.Detect("", []byte("#!/usr/bin/env python3\nprint('hi')\n"))
		require.True(t, ok, "expected a match")
		assert.Equal(t, identifier.Language("python"), lang, "wrong language")
	})

	t.Run("Classifier", func(t *testing.T) {
		source := `import java.util.List;

public class Solution {
    public static int add(int a, int b) {
        return a + b;
    }

    public static void main(String[] args) {
        System.out.println(add(1, 2));
    }
}
`
		lang, ok := detector.Detect("", []byte(source))
		require.True(t, ok, "expected a match")
		assert.Equal(t, identifier.Language("java"), lang, "wrong language")
	})

	t.Run("UnmappedExtension", func(t *testing.T) {
		_, ok := identifier.NewDetector(map[string]*config.Profile{
			"java": profiles["java"],
		}).Detect("main.rb", []byte("#!/usr/bin/env ruby\nputs 1\n"))
		assert.False(t, ok, "ruby has no profile")
	})

	t.Run("Empty", func(t *testing.T) {
		_, ok := detector.Detect("", nil)
		assert.False(t, ok, "nothing to detect")
	})
}

func TestLanguageFlag(t *testing.T) {
	var lang identifier.Language
	require.NoError(t, lang.Set(" Java "), "failed to set")
	assert.Equal(t, "java", lang.String(), "language should be normalized")
	require.Error(t, lang.Set(""), "empty language rejected")
}

func TestResolve(t *testing.T) {
	grading := &config.GradingConfig{Languages: profiles, DefaultLanguage: "java"}
	detector := identifier.NewDetector(profiles)

	tests := []struct {
		name     string
		language string
		source   string
		expected string
		ok       bool
	}{
		{name: "Explicit", language: "Python", source: "class Solution {}", expected: "main.py", ok: true},
		{name: "ExplicitUnknown", language: "rust", source: "fn main() {}", ok: false},
		{name: "Detected", source: "#!/usr/bin/env python3\nprint(1)\n", expected: "main.py", ok: true},
		{name: "Default", source: "", expected: "Solution.java", ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile, ok := detector.Resolve(grading, tt.language, []byte(tt.source))
			require.Equal(t, tt.ok, ok, "unexpected resolution result")
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.expected, profile.Filename, "wrong profile")
		})
	}
}
