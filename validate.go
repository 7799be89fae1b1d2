package hackernews

// validate.go converts raw string arguments into checked values

import (
	"regexp"
	"strconv"
)

var (
	idPattern  = regexp.MustCompile(`^[0-9]+$`)
	urlPattern = regexp.MustCompile(`^https?://[A-Za-z0-9:.]+/.*$`)
)

// ParseID returns the integer value of an id consisting only of decimal digits.
// Anything else (including an empty string or a value too big for an int64) is not an id
// and false is returned so that the caller can report it in its own words.
func ParseID(raw string) (int64, bool) {
	if !idPattern.MatchString(raw) {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ParseHTTPURL returns the url unchanged if it is an http or https url with a host (letters,
// digits, colons and dots) followed by a path. A url with no path at all (eg "http://host")
// is rejected, while "http://host/" is accepted.
func ParseHTTPURL(raw string) (string, bool) {
	if !urlPattern.MatchString(raw) {
		return "", false
	}
	return raw, true
}
