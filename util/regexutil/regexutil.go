package regexutil

import "regexp"

// FindNamedGroupsMatch finds a match using a regex with named groups and returns
// a map representing the values of the sub-matches as key-value pairs
func FindNamedGroupsMatch(re *regexp.Regexp, text string) (map[string]string, bool) {
	match := re.FindStringSubmatch(text)
	if match == nil {
		return nil, false
	}
	result := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if i != 0 && name != "" {
			result[name] = match[i]
		}
	}
	return result, true
}
