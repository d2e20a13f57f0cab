// Package extract turns raw OCR text from a scanned passport into
// structured fields using an ordered set of regex patterns.
package extract

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ExtractedPassportData holds the best-effort fields recovered from one
// scan. Every field except Confidence is optional and omitted from JSON
// when empty. DateOfBirth, when set, is always a zero-padded YYYY-MM-DD
// string.
type ExtractedPassportData struct {
	FirstName   string  `json:"firstName,omitempty"`
	LastName    string  `json:"lastName,omitempty"`
	DateOfBirth string  `json:"dateOfBirth,omitempty"`
	Nationality string  `json:"nationality,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// Substrings of page boilerplate ("PASSPORT", "REPUBLIC OF ...",
// "UNITED ...") that must never end up in a name or nationality field.
// The check is case-sensitive on the trimmed candidate.
var boilerplateMarkers = []string{"PASSPORT", "REPUBLIC", "UNITED"}

func containsBoilerplate(s string) bool {
	for _, marker := range boilerplateMarkers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// ParsePassportText extracts passport fields from OCR text. It never
// fails: input with no recognizable structure yields the zero value with
// Confidence 0. The function is pure and safe for concurrent use.
func ParsePassportText(text string) ExtractedPassportData {
	var data ExtractedPassportData

	dateOfBirth, dateMatches := extractDateOfBirth(text)
	data.DateOfBirth = dateOfBirth

	firstName, lastName, nameScore := extractNames(text)
	data.FirstName = firstName
	data.LastName = lastName

	data.Nationality = extractNationality(text)

	data.Confidence = scoreConfidence(&data, dateMatches, nameScore)
	return data
}

// --- date of birth -----------------------------------------------------------

// datePattern pairs a regex with the function that maps its capture
// groups onto day/month/year. A nil extract means the pattern is matched
// (and counted towards the confidence bonus) but never produces a date.
type datePattern struct {
	re      *regexp.Regexp
	extract func(groups []string) (year, month, day int)
}

var datePatterns = []datePattern{
	// day[/-]month[/-]year
	{
		re: regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4})\b`),
		extract: func(groups []string) (int, int, int) {
			return atoi(groups[3]), atoi(groups[2]), atoi(groups[1])
		},
	},
	// day + month abbreviation (+ optional second day) + year. The groups
	// are captured but deliberately not consumed: only the match itself
	// counts towards the date-pattern bonus. Extracting from it would
	// change confidence scores for text that matches nothing else.
	{
		re:      regexp.MustCompile(`(?i)\b(\d{1,2})\s*(JAN|FEB|MAR|APR|MAY|JUN|JUL|AUG|SEP|OCT|NOV|DEC)[A-Za-z]*\s*(\d{1,2})?\s*(\d{4})\b`),
		extract: nil,
	},
	// year[/-]month[/-]day
	{
		re: regexp.MustCompile(`\b(\d{4})[/-](\d{1,2})[/-](\d{1,2})\b`),
		extract: func(groups []string) (int, int, int) {
			return atoi(groups[1]), atoi(groups[2]), atoi(groups[3])
		},
	},
}

// extractDateOfBirth tries every date pattern in order. Later patterns
// overwrite the result of earlier ones, so a year-first date wins over a
// day-first one when both are present. The returned counter feeds the
// confidence bonus.
func extractDateOfBirth(text string) (dateOfBirth string, patternMatches int) {
	for _, pattern := range datePatterns {
		groups := pattern.re.FindStringSubmatch(text)
		if groups == nil {
			continue
		}
		if pattern.extract == nil {
			patternMatches++
			continue
		}
		year, month, day := pattern.extract(groups)
		// Calendar-valid day and month only. Month length and leap years
		// are intentionally not checked.
		if month < 1 || month > 12 || day < 1 || day > 31 {
			continue
		}
		patternMatches++
		dateOfBirth = fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	}
	return dateOfBirth, patternMatches
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// --- names -------------------------------------------------------------------

// Labeled-field patterns, tried in order. Each captures the run of
// letters and spaces after the label up to the end of the line. The
// given-name labels come before the surname labels: with two accepted
// matches the first one in this list becomes the first name.
var nameLabelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)given\s+names?\s*:\s*([A-Za-z ]+)`),
	regexp.MustCompile(`(?i)first\s+name\s*:\s*([A-Za-z ]+)`),
	regexp.MustCompile(`(?i)surname\s*:\s*([A-Za-z ]+)`),
	regexp.MustCompile(`(?i)family\s+name\s*:\s*([A-Za-z ]+)`),
}

// Fallback scan: a capitalized word followed by one or more capitalized
// words on the same line. A '<' (MRZ filler) or line break ends the
// sequence.
var capitalizedSequence = regexp.MustCompile(`(?m)([A-Z][A-Za-z]*(?: +[A-Z][A-Za-z]*)+)(?:<|$)`)

// extractNames runs the two-tier name strategy. The returned score is the
// raw accumulator (+0.25 per accepted label match, +0.15 for a fallback
// hit); the caller caps its contribution to the final confidence.
func extractNames(text string) (firstName, lastName string, score float64) {
	var accepted []string
	for _, pattern := range nameLabelPatterns {
		groups := pattern.FindStringSubmatch(text)
		if groups == nil {
			continue
		}
		candidate := strings.TrimSpace(groups[1])
		if candidate == "" || containsBoilerplate(candidate) {
			continue
		}
		accepted = append(accepted, candidate)
		score += 0.25
	}

	// Resolution only fires on exactly one or exactly two accepted
	// matches. Three or more (say both "Surname" and "Family Name"
	// present) leave the fields unset and fall through to the scan below.
	switch len(accepted) {
	case 2:
		firstName = accepted[0]
		lastName = accepted[1]
	case 1:
		tokens := strings.Fields(accepted[0])
		if len(tokens) >= 2 {
			firstName = tokens[0]
			lastName = strings.Join(tokens[1:], " ")
		} else {
			firstName = accepted[0]
		}
	}

	if firstName != "" && lastName != "" {
		return firstName, lastName, score
	}

	if first, last, ok := scanCapitalizedNames(text); ok {
		firstName = first
		lastName = last
		score += 0.15
	}
	return firstName, lastName, score
}

// scanCapitalizedNames accepts the first capitalized sequence that has at
// least two tokens, is at most 50 characters, and carries no page
// boilerplate.
func scanCapitalizedNames(text string) (firstName, lastName string, ok bool) {
	for _, groups := range capitalizedSequence.FindAllStringSubmatch(text, -1) {
		tokens := strings.Fields(strings.TrimSpace(groups[1]))
		if len(tokens) < 2 {
			continue
		}
		fullName := strings.Join(tokens, " ")
		if len(fullName) > 50 || containsBoilerplate(fullName) {
			continue
		}
		return tokens[0], strings.Join(tokens[1:], " "), true
	}
	return "", "", false
}

// --- nationality -------------------------------------------------------------

var nationalityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)nationality\s*:\s*([A-Za-z ]+)`),
	regexp.MustCompile(`(?i)national[ity]*\s*:\s*([A-Za-z ]+)`),
	regexp.MustCompile(`(?i)citizenship\s*:\s*([A-Za-z ]+)`),
	// Demonym at the start of a line ("Egyptian", "Indian"). Weak signal,
	// case-sensitive on purpose.
	regexp.MustCompile(`(?m)^([A-Z][a-z]+ian)\b`),
}

var nonLetterOrSpace = regexp.MustCompile(`[^A-Za-z ]`)

// extractNationality accepts the first pattern whose cleaned capture is
// non-empty. A capture containing "PASSPORT" or one that is empty after
// stripping non-letters moves on to the next pattern.
func extractNationality(text string) string {
	for _, pattern := range nationalityPatterns {
		groups := pattern.FindStringSubmatch(text)
		if groups == nil {
			continue
		}
		value := strings.TrimSpace(groups[1])
		if strings.Contains(value, "PASSPORT") {
			continue
		}
		value = strings.TrimSpace(nonLetterOrSpace.ReplaceAllString(value, ""))
		if value != "" {
			return value
		}
	}
	return ""
}

// --- confidence --------------------------------------------------------------

// scoreConfidence sums independent heuristics. This is a completeness
// score, not a probability: bonuses stack, penalties floor at zero, and
// the total is clamped to [0,1] at the end.
func scoreConfidence(data *ExtractedPassportData, dateMatches int, nameScore float64) float64 {
	confidence := 0.0

	if n := len(data.FirstName); n > 1 && n < 30 {
		confidence += 0.25
	}
	if n := len(data.LastName); n > 1 && n < 50 {
		confidence += 0.25
	}
	if data.DateOfBirth != "" {
		confidence += 0.25
	}
	if n := len(data.Nationality); n > 1 && n < 30 {
		confidence += 0.25
	}
	if dateMatches > 0 {
		confidence += 0.05
	}
	confidence += math.Min(0.05, nameScore)

	if containsBoilerplate(data.FirstName) {
		confidence = math.Max(0, confidence-0.3)
	}
	if containsBoilerplate(data.LastName) {
		confidence = math.Max(0, confidence-0.3)
	}

	return math.Min(1, math.Max(0, confidence))
}
