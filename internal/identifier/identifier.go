package identifier

import (
	"slices"
	"strings"

	"github.com/go-enry/go-enry/v2"

	"github.com/classgrade/autograder/internal/config"
)

// Maps go-enry language names onto configured grading profiles
type Detector struct {
	// lowercased go-enry name -> profile name
	byLanguage map[string]Language
	// go-enry names the classifier may choose from
	candidates []string
}

func NewDetector(profiles map[string]*config.Profile) *Detector {
	d := &Detector{byLanguage: make(map[string]Language)}

	// first profile by name wins when two profiles claim the same language
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		for _, lang := range profiles[name].Detect {
			key := strings.ToLower(lang)
			if _, ok := d.byLanguage[key]; ok {
				continue
			}
			d.byLanguage[key] = Language(name)
			d.candidates = append(d.candidates, lang)
		}
	}

	return d
}

// Heuristically determine the grading profile for a file given its name (optional) and content
func (d *Detector) Detect(filename string, content []byte) (Language, bool) {
	if filename != "" {
		if lang, ok := d.first(enry.GetLanguagesByExtension(filename, content, nil)); ok {
			return lang, true
		}
	}

	if lang, ok := d.first(enry.GetLanguagesByShebang(filename, content, nil)); ok {
		return lang, true
	}
	if lang, ok := d.first(enry.GetLanguagesByModeline(filename, content, nil)); ok {
		return lang, true
	}

	if len(d.candidates) == 0 || len(content) == 0 {
		return LanguageInvalid, false
	}

	return d.first(enry.GetLanguagesByClassifier(filename, content, d.candidates))
}

func (d *Detector) first(candidates []string) (Language, bool) {
	for _, candidate := range candidates {
		if lang, ok := d.byLanguage[strings.ToLower(candidate)]; ok {
			return lang, true
		}
	}

	return LanguageInvalid, false
}

// Picks the grading profile for a submission. An explicit language must name a profile.
// Otherwise the language is detected from the source, falling back to the default.
func (d *Detector) Resolve(
	grading *config.GradingConfig,
	language string,
	source []byte,
) (*config.Profile, bool) {
	if language != "" {
		return grading.Profile(language)
	}

	if lang, ok := d.Detect("", source); ok {
		if profile, ok := grading.Profile(lang.String()); ok {
			return profile, true
		}
	}

	return grading.Profile("")
}
