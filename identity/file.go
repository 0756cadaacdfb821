package identity

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// tokensFile is the on-disk layout of a token file:
//
//	tokens:
//	  - token: "s3cret"
//	    owner_id: "u1"
type tokensFile struct {
	Tokens []tokenEntry `yaml:"tokens"`
}

type tokenEntry struct {
	Token   string `yaml:"token"`
	OwnerID string `yaml:"owner_id"`
}

// LoadFile reads a YAML token file and returns a StaticVerifier over its
// entries. Entries with an empty token or owner id are rejected.
func LoadFile(path string) (*StaticVerifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load token file: %w", err)
	}

	var f tokensFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("load token file %s: %w", path, err)
	}

	tokens := make(map[string]string, len(f.Tokens))
	for i, e := range f.Tokens {
		if e.Token == "" || e.OwnerID == "" {
			return nil, fmt.Errorf("load token file %s: entry %d has empty token or owner_id", path, i)
		}
		tokens[e.Token] = e.OwnerID
	}

	return NewStaticVerifier(tokens), nil
}
