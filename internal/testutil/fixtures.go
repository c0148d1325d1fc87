package testutil

import (
	"embed"
	"io/fs"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/tree"
)

//go:embed fixtures/*.toml fixtures/*.json
var fixturesFS embed.FS

//go:embed templates
var templatesFS embed.FS

// TemplatePaths maps the fixture template keys to their directories.
var TemplatePaths = map[string]string{
	"REACT": "react",
	"VUE":   "vue",
}

// LoadFixture loads a fixture file by name.
func LoadFixture(name string) ([]byte, error) {
	return fixturesFS.ReadFile("fixtures/" + name)
}

// LoadConfigFixture parses a config.toml fixture.
func LoadConfigFixture(name string) (*config.Config, error) {
	data, err := LoadFixture(name)
	if err != nil {
		return nil, err
	}
	return config.Parse(data)
}

// LoadTreeFixture decodes a persisted tree fixture.
func LoadTreeFixture(name string) (*tree.Folder, error) {
	data, err := LoadFixture(name)
	if err != nil {
		return nil, err
	}
	return tree.Decode(data)
}

// ValidConfig returns the valid config fixture.
func ValidConfig() (*config.Config, error) {
	return LoadConfigFixture("valid_config.toml")
}

// InvalidConfig parses the invalid config fixture; it always fails.
func InvalidConfig() (*config.Config, error) {
	return LoadConfigFixture("invalid_config.toml")
}

// Playground returns the sample workspace tree.
func Playground() (*tree.Folder, error) {
	return LoadTreeFixture("playground.json")
}

// Templates returns the fixture template directories, keyed as in
// TemplatePaths.
func Templates() fs.FS {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}
