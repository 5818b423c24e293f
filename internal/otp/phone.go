package otp

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/tagzilla/internal/common"
	"github.com/nyaruka/phonenumbers"
)

const DefaultRegion = "US"

// NormalizePhone parses raw in the context of region and formats it as E.164.
func NormalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: phone number is required", common.ErrValidation)
	}

	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return "", fmt.Errorf("%w: phone number %q: %w", common.ErrValidation, raw, err)
	}
	if !phonenumbers.IsPossibleNumber(num) {
		return "", fmt.Errorf("%w: phone number %q is not possible", common.ErrValidation, raw)
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
