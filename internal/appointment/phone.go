package appointment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion applies to numbers written without a country prefix.
const DefaultPhoneRegion = "CL"

var ErrInvalidPhone = errors.New("invalid phone number")

// NormalizePhone returns raw in E.164 form. Nil or blank input yields nil.
func NormalizePhone(raw *string) (*string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}

	num, err := phonenumbers.Parse(*raw, DefaultPhoneRegion)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidPhone, *raw, err)
	}
	if !phonenumbers.IsPossibleNumber(num) {
		return nil, fmt.Errorf("%w %q", ErrInvalidPhone, *raw)
	}

	e164 := phonenumbers.Format(num, phonenumbers.E164)
	return &e164, nil
}
