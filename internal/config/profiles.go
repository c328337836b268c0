package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// Standalone language profile file, for deployments that manage grading images
// separately from the service config:
//
//	java:
//	  filename: Solution.java
//	  image: registry.example.com/grader-java:21
//	  detect: [Java]
func LoadProfiles(path string) (map[string]*Profile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return ParseProfiles(content)
}

func ParseProfiles(content []byte) (map[string]*Profile, error) {
	raw := map[string]*Profile{}
	if err := yaml.UnmarshalStrict(content, &raw); err != nil {
		return nil, err
	}

	profiles := make(map[string]*Profile, len(raw))
	for name, profile := range raw {
		if profile == nil {
			return nil, fmt.Errorf("profile %q is empty", name)
		}

		key := strings.ToLower(name)
		profile.Name = key
		profiles[key] = profile
	}

	return profiles, nil
}
