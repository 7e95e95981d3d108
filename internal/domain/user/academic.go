package user

import (
	"errors"
	"strings"
)

var (
	ErrInvalidEmail     = errors.New("user: email address is malformed")
	ErrNonAcademicEmail = errors.New("user: email must belong to an accredited academic domain")
)

// AcademicPolicy decides which email domains belong to accredited institutions.
// Domains ending in .edu, .edu.<cc> or .ac.<cc> are accepted, plus any extra
// domain (and its subdomains) listed in Extra.
type AcademicPolicy struct {
	Extra []string
}

// ResolveInstitution validates the email and returns the institution it belongs to.
func (p AcademicPolicy) ResolveInstitution(email string) (Institution, error) {
	email = NormalizeEmail(email)
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return Institution{}, ErrInvalidEmail
	}
	domain := strings.Trim(email[at+1:], ".")
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return Institution{}, ErrInvalidEmail
	}
	for _, label := range labels {
		if label == "" {
			return Institution{}, ErrInvalidEmail
		}
	}

	for _, extra := range p.Extra {
		extra = strings.ToLower(strings.Trim(strings.TrimSpace(extra), "."))
		if extra == "" {
			continue
		}
		if domain == extra || strings.HasSuffix(domain, "."+extra) {
			return newInstitution(extra), nil
		}
	}

	n := len(labels)
	switch {
	case labels[n-1] == "edu":
		return newInstitution(strings.Join(labels[n-2:], ".")), nil
	case n >= 3 && len(labels[n-1]) == 2 && (labels[n-2] == "edu" || labels[n-2] == "ac"):
		return newInstitution(strings.Join(labels[n-3:], ".")), nil
	}
	return Institution{}, ErrNonAcademicEmail
}

func newInstitution(domain string) Institution {
	label := domain
	if idx := strings.IndexByte(domain, '.'); idx > 0 {
		label = domain[:idx]
	}
	return Institution{
		Name:   strings.ToUpper(label[:1]) + label[1:],
		Domain: domain,
	}
}
