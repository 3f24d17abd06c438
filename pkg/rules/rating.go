package rules

import "regexp"

// Rating lines arrive in several shapes: "RATING:1", "RATING：1" with a
// full-width colon, "rating = 1", "rating 1". A single ASCII digit only;
// the word boundary keeps "grading: 1" from matching. Patterns are tried
// in order and the first hit wins.
var ratingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\brating\s*[:：=＝]\s*([0-9])`),
	regexp.MustCompile(`(?i)\brating\s+([0-9])`),
}

// ExtractRating pulls a numeric satisfaction score out of free-text body
// content. Returns the digit and true, or 0 and false when no pattern
// matches.
func ExtractRating(text string) (int, bool) {
	if text == "" {
		return 0, false
	}
	for _, pattern := range ratingPatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			return int(m[1][0] - '0'), true
		}
	}
	return 0, false
}
