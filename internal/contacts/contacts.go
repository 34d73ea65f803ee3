// Package contacts resolves spoken names to e-mail addresses using the
// contacts.yaml file in MAILVOX_HOME.
package contacts

import (
	"errors"
	"fmt"
	"net/mail"
	"os"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when removing a contact that does not exist.
var ErrNotFound = errors.New("contact not found")

// Contact is one address book entry.
type Contact struct {
	Name    string   `yaml:"name"`
	Email   string   `yaml:"email"`
	Aliases []string `yaml:"aliases,omitempty"`
}

type file struct {
	Contacts []Contact `yaml:"contacts"`
}

// Directory is an address book loaded from disk.
type Directory struct {
	path     string
	contacts []Contact
}

// Load reads path. A missing file is an empty directory.
func Load(path string) (*Directory, error) {
	d := &Directory{path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return d, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading contacts: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing contacts: %w", err)
	}
	d.contacts = f.Contacts
	return d, nil
}

// New builds an in-memory directory, mostly for tests.
func New(contacts ...Contact) *Directory {
	return &Directory{contacts: contacts}
}

// Save writes the directory back to the file it was loaded from.
func (d *Directory) Save() error {
	if d.path == "" {
		return errors.New("contacts directory has no backing file")
	}
	data, err := yaml.Marshal(file{Contacts: d.contacts})
	if err != nil {
		return fmt.Errorf("encoding contacts: %w", err)
	}
	return os.WriteFile(d.path, data, 0o644)
}

// List returns contacts sorted by name.
func (d *Directory) List() []Contact {
	out := append([]Contact(nil), d.contacts...)
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// Add inserts c, replacing any entry with the same name.
func (d *Directory) Add(c Contact) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	if c.Name == "" {
		return errors.New("contact name is required")
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return fmt.Errorf("invalid address %q: %w", c.Email, err)
	}
	for i, existing := range d.contacts {
		if strings.EqualFold(existing.Name, c.Name) {
			d.contacts[i] = c
			return nil
		}
	}
	d.contacts = append(d.contacts, c)
	return nil
}

// Remove deletes the entry named name.
func (d *Directory) Remove(name string) error {
	for i, c := range d.contacts {
		if strings.EqualFold(c.Name, strings.TrimSpace(name)) {
			d.contacts = append(d.contacts[:i], d.contacts[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%s: %w", name, ErrNotFound)
}

// Resolve maps a spoken name to an address. It accepts a literal or spelled
// out address ("bob at example dot com"), a full name or alias, and finally
// a first name that matches exactly one contact.
func (d *Directory) Resolve(spoken string) (string, bool) {
	if addr, ok := spokenAddress(spoken); ok {
		return addr, true
	}
	key := normalize(spoken)
	if key == "" {
		return "", false
	}
	for _, c := range d.contacts {
		if normalize(c.Name) == key {
			return c.Email, true
		}
		for _, a := range c.Aliases {
			if normalize(a) == key {
				return c.Email, true
			}
		}
	}
	var match string
	for _, c := range d.contacts {
		first := strings.Fields(normalize(c.Name))
		if len(first) > 0 && first[0] == key {
			if match != "" && match != c.Email {
				return "", false
			}
			match = c.Email
		}
	}
	return match, match != ""
}

func spokenAddress(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimRight(s, ".!?")
	if !strings.Contains(s, "@") {
		words := strings.Fields(s)
		for i, w := range words {
			switch w {
			case "at":
				words[i] = "@"
			case "dot":
				words[i] = "."
			}
		}
		s = strings.Join(words, "")
	}
	s = strings.ReplaceAll(s, " ", "")
	if strings.Count(s, "@") != 1 {
		return "", false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || !strings.Contains(addr.Address[strings.Index(addr.Address, "@"):], ".") {
		return "", false
	}
	return addr.Address, true
}

func normalize(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
