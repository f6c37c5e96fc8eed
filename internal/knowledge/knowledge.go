// Package knowledge holds the reference lists used by the scoring engine:
// institutions with their tier group and certifications with their type.
package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// Institution maps a school name to its tier group.
type Institution struct {
	Name  string `json:"name"`
	Group string `json:"group"`
}

// Certification is a named certificate of some type, optionally known under aliases.
type Certification struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Aliases []string `json:"aliases,omitempty"`
}

// Base is a read-only lookup built from the reference lists.
type Base struct {
	institutions   map[string]string
	certifications map[string]string
}

// New indexes both lists.
func New(institutions []Institution, certifications []Certification) *Base {
	return &Base{
		institutions:   BuildInstitutionIndex(institutions),
		certifications: BuildCertificationIndex(certifications),
	}
}

// BuildInstitutionIndex maps institution names to tier groups. Later entries
// overwrite earlier ones with the same name.
func BuildInstitutionIndex(list []Institution) map[string]string {
	index := make(map[string]string, len(list))
	for _, inst := range list {
		index[inst.Name] = inst.Group
	}
	return index
}

// BuildCertificationIndex maps lowercased certification names and aliases to
// the certification type. Entries without a type are skipped. Later entries
// overwrite earlier ones with the same key.
func BuildCertificationIndex(list []Certification) map[string]string {
	index := make(map[string]string, len(list))
	for _, cert := range list {
		if cert.Type == "" {
			continue
		}
		index[strings.ToLower(cert.Name)] = cert.Type
		for _, alias := range cert.Aliases {
			index[strings.ToLower(alias)] = cert.Type
		}
	}
	return index
}

// InstitutionTier returns the tier group of an institution.
func (b *Base) InstitutionTier(name string) (string, bool) {
	if b == nil {
		return "", false
	}
	tier, ok := b.institutions[name]
	return tier, ok
}

// CertificationType returns the type of a certification looked up by
// lowercased name or alias.
func (b *Base) CertificationType(name string) (string, bool) {
	if b == nil {
		return "", false
	}
	t, ok := b.certifications[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// Files locates the reference lists on disk.
type Files struct {
	Institutions   string
	Certifications string
}

// Load reads both lists and indexes them. A missing file is treated as an
// empty list; a malformed one is an error.
func (f Files) Load() (*Base, error) {
	var institutions []Institution
	if err := readList(f.Institutions, &institutions); err != nil {
		return nil, fmt.Errorf("institutions: %w", err)
	}

	var certifications []Certification
	if err := readList(f.Certifications, &certifications); err != nil {
		return nil, fmt.Errorf("certifications: %w", err)
	}

	return New(institutions, certifications), nil
}

func readList(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading %q: %w", path, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %q: %w", path, err)
	}

	return nil
}
