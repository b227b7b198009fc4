package placement

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/EdeAmaya/SistemaDeNotasExpo-sub001/internal/domain/evalerr"
)

// codePattern: specialty letter, level digit, two-digit team number, an
// optional dash, two-digit year. Examples: A301-25, A30125. Only ASCII
// letters and digits match.
var codePattern = regexp.MustCompile(`^([A-Za-z])([0-9])([0-9]{2})-?([0-9]{2})$`)

// Code is a decoded project identifier.
type Code struct {
	Specialty string
	Level     int
	Team      int
	Year      int
}

// String renders the canonical dashed form.
func (c Code) String() string {
	return fmt.Sprintf("%s%d%02d-%02d", c.Specialty, c.Level, c.Team, c.Year)
}

// ParseCode decodes a project identifier code. The letter is matched case
// insensitively and returned upper-cased; anything else that does not match the pattern is rejected.
func ParseCode(s string) (Code, error) {
	const op = "placement.parse_code"
	m := codePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Code{}, evalerr.NotFound(op, fmt.Errorf("%w: %q", evalerr.ErrMalformedCode, s))
	}
	level, _ := strconv.Atoi(m[2])
	team, _ := strconv.Atoi(m[3])
	year, _ := strconv.Atoi(m[4])
	return Code{Specialty: strings.ToUpper(m[1]), Level: level, Team: team, Year: year}, nil
}
