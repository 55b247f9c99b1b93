package workspace

import (
	"regexp"
	"strings"
)

// UnknownName is shown for references to contacts that do not exist.
const UnknownName = "Unknown"

// ContactRef is the result of resolving a contactId: either the contact, or the
// placeholder {name:"Unknown"} with Found=false.
type ContactRef struct {
	Contact
	Found bool `json:"found"`
}

// DisplayName returns the contact name, or UnknownName when nothing matched.
func (r ContactRef) DisplayName() string {
	if !r.Found {
		return UnknownName
	}
	return r.Name
}

// LookupContact resolves id against contacts. It never fails.
func LookupContact(contacts []Contact, id string) ContactRef {
	for _, c := range contacts {
		if c.ID == id {
			return ContactRef{Contact: c, Found: true}
		}
	}
	return ContactRef{Contact: Contact{Name: UnknownName}}
}

// contactIndex builds an id lookup for joins over many records.
func contactIndex(contacts []Contact) map[string]Contact {
	idx := make(map[string]Contact, len(contacts))
	for _, c := range contacts {
		if _, dup := idx[c.ID]; !dup {
			idx[c.ID] = c
		}
	}
	return idx
}

func resolve(idx map[string]Contact, id string) ContactRef {
	if c, ok := idx[id]; ok {
		return ContactRef{Contact: c, Found: true}
	}
	return ContactRef{Contact: Contact{Name: UnknownName}}
}

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeEmail trims, lowercases and strips internal whitespace so two
// spellings of the same address compare equal.
func NormalizeEmail(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, "")
}

// FindContactByEmail returns the first contact whose normalised email matches.
func FindContactByEmail(contacts []Contact, email string) (Contact, bool) {
	want := NormalizeEmail(email)
	if want == "" {
		return Contact{}, false
	}
	for _, c := range contacts {
		if NormalizeEmail(c.Email) == want {
			return c, true
		}
	}
	return Contact{}, false
}
