package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeProfiles(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadProfiles(t *testing.T) {
	path := writeProfiles(t, `
profiles:
  - name: contacts
    object: Contact
    soql: SELECT Id, Email FROM Contact
  - name: accounts
    object: Account
    soql: SELECT Id, Name FROM Account
`)

	profiles, err := LoadProfiles(path)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	require.Equal(t, "contacts", profiles[0].Name)
	require.Equal(t, "Account", profiles[1].Object)
}

func TestLoadProfilesMissingFields(t *testing.T) {
	path := writeProfiles(t, `
profiles:
  - name: contacts
    object: Contact
`)

	_, err := LoadProfiles(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing soql")
}

func TestLoadProfilesEmpty(t *testing.T) {
	path := writeProfiles(t, "profiles: []\n")
	_, err := LoadProfiles(path)
	require.Error(t, err)
}

func TestLoadProfilesMissingFile(t *testing.T) {
	_, err := LoadProfiles(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestBuiltInProfiles(t *testing.T) {
	require.NotEmpty(t, BuiltInProfiles)
	require.Equal(t, "Contact", BuiltInProfiles[0].Object)
}
