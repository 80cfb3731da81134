package booking

import (
	"strings"

	"github.com/mcdev12/slotsync/go/internal/errs"
	"github.com/mcdev12/slotsync/go/internal/models"
)

const phoneDigits = 10

// NormalizePhone strips common separators and requires exactly ten digits.
func NormalizePhone(phone string) (string, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(phone) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", errs.Invalid("phone", "must contain only digits")
		}
	}
	if b.Len() != phoneDigits {
		return "", errs.Invalid("phone", "must be 10 digits")
	}
	return b.String(), nil
}

// ValidateServices requires at least one service and, when the menu is
// known, that every name is on it.
func ValidateServices(services []string, salon *models.Salon) ([]string, error) {
	out := make([]string, 0, len(services))
	for _, s := range services {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, errs.Invalid("services", "select at least one service")
	}
	if salon != nil && len(salon.Menu) > 0 {
		for _, s := range out {
			if _, ok := salon.Lookup(s); !ok {
				return nil, errs.Invalid("services", "unknown service "+s)
			}
		}
	}
	return out, nil
}

// JoinInput is a request to take a ticket.
type JoinInput struct {
	Name     string
	Phone    string
	Services []string
}

// Validate checks the input locally and returns it normalized. The server
// remains the authority; these checks only avoid pointless round trips.
func (in JoinInput) Validate(salon *models.Salon) (JoinInput, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return JoinInput{}, errs.Invalid("name", "is required")
	}
	phone, err := NormalizePhone(in.Phone)
	if err != nil {
		return JoinInput{}, err
	}
	services, err := ValidateServices(in.Services, salon)
	if err != nil {
		return JoinInput{}, err
	}
	return JoinInput{Name: name, Phone: phone, Services: services}, nil
}
