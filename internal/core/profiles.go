package core

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile defines one object to synchronize and the query that fetches
// its records.
type Profile struct {
	Name   string `json:"name" yaml:"name"`
	Object string `json:"object" yaml:"object"`
	SOQL   string `json:"soql" yaml:"soql"`
}

// profileFile is the YAML shape of a profiles file.
type profileFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// BuiltInProfiles are the defaults used when no profiles file is given.
var BuiltInProfiles = []Profile{
	{
		Name:   "contacts",
		Object: "Contact",
		SOQL:   "SELECT Id, FirstName, LastName, Email, Phone, SystemModstamp FROM Contact",
	},
}

// LoadProfiles reads sync profiles from a YAML file.
func LoadProfiles(path string) ([]Profile, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- profiles path is user-provided
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}

	var file profileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse profiles %s: %w", path, err)
	}
	if len(file.Profiles) == 0 {
		return nil, fmt.Errorf("profiles %s defines no profiles", path)
	}

	for i, profile := range file.Profiles {
		switch {
		case strings.TrimSpace(profile.Name) == "":
			return nil, fmt.Errorf("profiles %s: entry %d missing name", path, i)
		case strings.TrimSpace(profile.Object) == "":
			return nil, fmt.Errorf("profiles %s: profile %q missing object", path, profile.Name)
		case strings.TrimSpace(profile.SOQL) == "":
			return nil, fmt.Errorf("profiles %s: profile %q missing soql", path, profile.Name)
		}
	}

	return file.Profiles, nil
}
