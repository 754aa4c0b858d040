// Package questionbank holds the static, role-keyed fallback questions and
// domain keywords used when the coordinator cannot supply questions.
package questionbank

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultQuestion is asked when the candidate's role has no bank.
const DefaultQuestion = "Tell me about a project you are proud of and the role you played in it."

// Role is one role's ordered question sequence and keyword set.
type Role struct {
	Name      string   `yaml:"name"`
	Questions []string `yaml:"questions"`
	Keywords  []string `yaml:"keywords"`
}

// Bank is a lookup table of roles. The zero value is empty; use Default or
// Load to obtain a populated bank. A Bank is read-only after construction.
type Bank struct {
	roles map[string]Role
}

// bankFile is the on-disk YAML shape accepted by Load.
type bankFile struct {
	Roles []Role `yaml:"roles"`
}

// New builds a bank from the given roles. Later roles with the same name
// replace earlier ones.
func New(roles ...Role) *Bank {
	b := &Bank{roles: make(map[string]Role, len(roles))}
	for _, r := range roles {
		b.roles[r.Name] = r
	}
	return b
}

// Default returns the built-in bank.
func Default() *Bank {
	return New(builtinRoles...)
}

// Load reads a YAML bank file and merges its roles over the built-in bank.
// An empty path returns the built-in bank unchanged.
func Load(path string) (*Bank, error) {
	b := Default()
	if path == "" {
		return b, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("questionbank: reading %s: %w", path, err)
	}

	var f bankFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("questionbank: parsing %s: %w", path, err)
	}

	for _, r := range f.Roles {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return nil, fmt.Errorf("questionbank: %s: role without a name", path)
		}
		r.Name = name
		b.roles[name] = r
	}
	return b, nil
}

// lookup finds a role by exact name, then case-insensitively.
func (b *Bank) lookup(role string) (Role, bool) {
	if b == nil {
		return Role{}, false
	}
	role = strings.TrimSpace(role)
	if r, ok := b.roles[role]; ok {
		return r, true
	}
	for name, r := range b.roles {
		if strings.EqualFold(name, role) {
			return r, true
		}
	}
	return Role{}, false
}

// Questions returns a copy of the role's ordered questions. The boolean is
// false when the role is unknown or has no questions.
func (b *Bank) Questions(role string) ([]string, bool) {
	r, ok := b.lookup(role)
	if !ok || len(r.Questions) == 0 {
		return nil, false
	}
	out := make([]string, len(r.Questions))
	copy(out, r.Questions)
	return out, true
}

// QuestionsOrDefault returns the role's questions, or a single generic
// question when the role is unknown.
func (b *Bank) QuestionsOrDefault(role string) []string {
	if qs, ok := b.Questions(role); ok {
		return qs
	}
	return []string{DefaultQuestion}
}

// Keywords returns a copy of the role's keyword set; empty when unknown.
func (b *Bank) Keywords(role string) []string {
	r, ok := b.lookup(role)
	if !ok {
		return nil
	}
	out := make([]string, len(r.Keywords))
	copy(out, r.Keywords)
	return out
}

// Roles returns the known role names, sorted.
func (b *Bank) Roles() []string {
	if b == nil {
		return nil
	}
	names := make([]string, 0, len(b.roles))
	for name := range b.roles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
