package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CredentialFile maps tenants to provider API tokens. Token issuance and
// rotation are an external concern; this file is the read-only handoff point.
//
// A tenant present in the tenants table but absent here is skipped by the
// sync without error - that is the contract for "credential not provisioned
// yet".
type CredentialFile struct {
	tokens map[int64]string
}

type credentialEntry struct {
	ClientID int64  `yaml:"client_id"`
	Token    string `yaml:"token"`
}

// LoadCredentials reads a YAML credential file of {client_id, token} entries.
func LoadCredentials(path string) (*CredentialFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	var entries []credentialEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	tokens := make(map[int64]string, len(entries))
	for i, e := range entries {
		if e.ClientID == 0 || e.Token == "" {
			return nil, fmt.Errorf("credentials entry %d: client_id and token are required", i)
		}
		tokens[e.ClientID] = e.Token
	}
	return &CredentialFile{tokens: tokens}, nil
}

// NewStaticCredentials builds a credential source from a literal map (tests).
func NewStaticCredentials(tokens map[int64]string) *CredentialFile {
	copied := make(map[int64]string, len(tokens))
	for k, v := range tokens {
		copied[k] = v
	}
	return &CredentialFile{tokens: copied}
}

// Token returns the provider API token for a tenant, and whether one exists.
func (c *CredentialFile) Token(clientID int64) (string, bool) {
	tok, ok := c.tokens[clientID]
	return tok, ok
}
