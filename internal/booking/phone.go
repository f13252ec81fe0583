package booking

import (
	"regexp"
	"strings"
)

var phonePattern = regexp.MustCompile(`^\+?\d{10,15}$`)

var phoneStripper = strings.NewReplacer("-", "", "(", "", ")", "")

// ValidatePhone strips whitespace and the characters "-()" and checks that
// what remains is an optional leading "+" followed by 10 to 15 digits.
func ValidatePhone(raw string) bool {
	compact := strings.Join(strings.Fields(raw), "")
	compact = phoneStripper.Replace(compact)
	return phonePattern.MatchString(compact)
}
