package core

import "time"

// Age brackets used by the reporting view.
const (
	BracketUpTo12 = "12 o menos"
	Bracket13To15 = "13 a 15"
	Bracket16To18 = "16 a 18"
	Bracket19Plus = "19 o más"
)

// AgeAt returns the completed years between birth and asOf.
func AgeAt(birth, asOf time.Time) int {
	age := asOf.Year() - birth.Year()
	if asOf.Month() < birth.Month() || (asOf.Month() == birth.Month() && asOf.Day() < birth.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// ParseBirthDate accepts YYYY-MM-DD and DD/MM/YYYY.
func ParseBirthDate(s string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// AgeBracket maps an age to its bracket label.
func AgeBracket(age int) string {
	switch {
	case age <= 12:
		return BracketUpTo12
	case age <= 15:
		return Bracket13To15
	case age <= 18:
		return Bracket16To18
	default:
		return Bracket19Plus
	}
}
