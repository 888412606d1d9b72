package spaceurl

import (
	"regexp"

	"github.com/airenas/spacego/internal/pkg/errs"
	"github.com/pkg/errors"
)

var (
	patterns = []*regexp.Regexp{
		regexp.MustCompile(`twitter\.com/i/spaces/([a-zA-Z0-9]+)`),
		regexp.MustCompile(`x\.com/i/spaces/([a-zA-Z0-9]+)`),
	}
	idRegexp = regexp.MustCompile(`^[a-zA-Z0-9]{13}$`)
)

//ExtractID returns the space ID from a space URL
func ExtractID(url string) (string, error) {
	for _, p := range patterns {
		m := p.FindStringSubmatch(url)
		if m != nil {
			return m[1], nil
		}
	}
	return "", errors.Wrap(errs.ErrInvalidURL, url)
}

//IsValidID checks the space ID format - 13 alphanumeric chars
func IsValidID(id string) bool {
	return idRegexp.MatchString(id)
}

//IsValidURL checks if URL points to a space
func IsValidURL(url string) bool {
	_, err := ExtractID(url)
	return err == nil
}
