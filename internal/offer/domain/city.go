package domain

import "strings"

const addressSeparator = ", "

// destinationSeparator joins addresses in distance lookups, so it can never
// be part of one.
const destinationSeparator = "|"

// DeriveCity extracts the city token of an address shaped like
// "unit street, city, region, country": the third segment from the end.
func DeriveCity(location string) (string, error) {
	if strings.Contains(location, destinationSeparator) {
		return "", ErrInvalidLocation
	}
	parts := strings.Split(location, addressSeparator)
	if len(parts) < 3 {
		return "", ErrInvalidLocation
	}
	city := strings.TrimSpace(parts[len(parts)-3])
	if city == "" {
		return "", ErrInvalidLocation
	}
	return city, nil
}
