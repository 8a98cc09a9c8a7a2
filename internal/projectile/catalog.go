package projectile

import (
	"bytes"
	_ "embed"
	"os"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// catalogFile is the on-disk layout of a definition catalog. Entries are
// kept as nodes so each can be decoded on top of Defaults.
type catalogFile struct {
	Definitions []yaml.Node `yaml:"definitions"`
}

// ParseCatalog decodes a YAML catalog of projectile definitions. Fields an
// entry leaves out keep their Defaults value. Every definition is validated
// and IDs must be unique.
func ParseCatalog(data []byte) ([]Definition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, oops.Code("invalid_catalog").Errorf("catalog is empty")
	}

	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, oops.Code("invalid_catalog").Wrapf(err, "parse catalog")
	}
	if len(f.Definitions) == 0 {
		return nil, oops.Code("invalid_catalog").Errorf("catalog has no definitions")
	}

	defs := make([]Definition, 0, len(f.Definitions))
	seen := make(map[string]struct{}, len(f.Definitions))
	for i := range f.Definitions {
		def := Defaults()
		if err := f.Definitions[i].Decode(&def); err != nil {
			return nil, oops.Code("invalid_catalog").With("index", i).Wrapf(err, "decode definition")
		}
		if err := def.Validate(); err != nil {
			return nil, oops.With("index", i).Wrap(err)
		}
		if _, dup := seen[def.ID]; dup {
			return nil, oops.Code("invalid_catalog").With("index", i, "definition", def.ID).Errorf("duplicate definition id %q", def.ID)
		}
		seen[def.ID] = struct{}{}
		defs = append(defs, def)
	}
	return defs, nil
}

// LoadCatalog reads and parses the catalog at path.
func LoadCatalog(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.With("path", path).Wrapf(err, "read catalog")
	}
	defs, err := ParseCatalog(data)
	if err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}
	return defs, nil
}

// DefaultCatalog returns the definitions bundled with the package.
func DefaultCatalog() []Definition {
	defs, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic("projectile: bundled catalog is invalid: " + err.Error())
	}
	return defs
}
