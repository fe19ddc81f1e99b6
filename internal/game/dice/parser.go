package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// Expression represents a parsed dice expression ready to be rolled.
//
// Invariant: Count >= 1 and Sides >= 2 after a successful Parse.
type Expression struct {
	Raw      string // original input string
	Count    int    // number of dice
	Sides    int    // faces per die
	Modifier int    // flat modifier (may be negative)
	// HasModifier is true when the source text carried a literal "+K"/"-K",
	// even "+0". Monster catalogs bake ability bonuses into the expression;
	// the resolver must not add them a second time.
	HasModifier bool
}

// Parse parses a dice expression string into an Expression.
// Supported forms: "d20", "2d6", "2d6+3", "4d8 - 2", "1D10".
//
// Postcondition: Returns a valid Expression or a descriptive error.
func Parse(expr string) (Expression, error) {
	s := strings.ToLower(strings.Join(strings.Fields(expr), ""))
	if s == "" {
		return Expression{}, fmt.Errorf("dice: empty expression")
	}

	dIdx := strings.Index(s, "d")
	if dIdx < 0 {
		return Expression{}, fmt.Errorf("dice: missing 'd' in expression %q", expr)
	}

	count := 1
	if countStr := s[:dIdx]; countStr != "" {
		var err error
		count, err = strconv.Atoi(countStr)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q: %w", expr, err)
		}
		if count <= 0 {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q: must be >= 1", expr)
		}
	}

	rest := s[dIdx+1:]
	sidesStr, modStr := rest, ""
	if i := strings.IndexAny(rest, "+-"); i >= 0 {
		sidesStr, modStr = rest[:i], rest[i:]
	}

	sides, err := strconv.Atoi(sidesStr)
	if err != nil {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: %w", expr, err)
	}
	if sides < 2 {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: must be >= 2", expr)
	}

	modifier := 0
	if modStr != "" {
		if modifier, err = strconv.Atoi(modStr); err != nil {
			return Expression{}, fmt.Errorf("dice: invalid modifier in %q: %w", expr, err)
		}
	}

	return Expression{
		Raw:         expr,
		Count:       count,
		Sides:       sides,
		Modifier:    modifier,
		HasModifier: modStr != "",
	}, nil
}

// MustParse parses expr and panics on error. Useful for package-level fixtures.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic("dice: MustParse failed for expression " + expr + ": " + err.Error())
	}
	return e
}

// Validate reports whether expr parses. An empty string is not valid.
func Validate(expr string) error {
	_, err := Parse(expr)
	return err
}

// Average returns the expected value of the expression, rounded down.
//
// Postcondition: Returns Count*(Sides+1)/2 + Modifier.
func (e Expression) Average() int {
	return e.Count*(e.Sides+1)/2 + e.Modifier
}

// Max returns the largest value the expression can produce.
func (e Expression) Max() int {
	return e.Count*e.Sides + e.Modifier
}

// Scaled returns a copy with the dice count multiplied by factor.
// The modifier is not multiplied.
//
// Precondition: factor >= 1.
func (e Expression) Scaled(factor int) Expression {
	if factor <= 1 {
		return e
	}
	out := e
	out.Count = e.Count * factor
	out.Raw = out.canonical()
	return out
}

// canonical renders the expression as "NdM[+/-K]".
func (e Expression) canonical() string {
	s := fmt.Sprintf("%dd%d", e.Count, e.Sides)
	if e.HasModifier {
		s += fmt.Sprintf("%+d", e.Modifier)
	}
	return s
}

// String returns the original text, or the canonical form when Raw is empty.
func (e Expression) String() string {
	if e.Raw != "" {
		return e.Raw
	}
	return e.canonical()
}

// CantripTier returns the damage-dice multiplier for a cantrip cast at the
// given caster level: 1 below 5, 2 from 5, 3 from 11, 4 from 17.
func CantripTier(casterLevel int) int {
	switch {
	case casterLevel >= 17:
		return 4
	case casterLevel >= 11:
		return 3
	case casterLevel >= 5:
		return 2
	default:
		return 1
	}
}
