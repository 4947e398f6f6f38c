package forms

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Rule is a named validation check over a submitted field value. Rules are
// pure functions: same value in, same verdict out.
type Rule struct {
	Name  string
	Check func(value string) error
}

// FileRule validates a submitted file by its name and decoded size.
type FileRule struct {
	Name  string
	Check func(filename string, size int) error
}

// Field pairs a form field with the ordered rules applied to it. Every rule
// runs; failures are aggregated rather than short-circuited.
type Field struct {
	Name  string
	Rules []Rule
}

// Required rejects empty values.
func Required() Rule {
	return Rule{
		Name: "required",
		Check: func(value string) error {
			if value == "" {
				return errors.New("this field is required")
			}
			return nil
		},
	}
}

// Integer rejects values that do not parse as a base-10 integer. Empty values
// pass; pair with Required to make the field mandatory.
func Integer() Rule {
	return Rule{
		Name: "integer",
		Check: func(value string) error {
			if value == "" {
				return nil
			}
			if _, err := strconv.Atoi(value); err != nil {
				return errors.New("must be a whole number")
			}
			return nil
		},
	}
}

// MinInt rejects integers below min.
func MinInt(min int) Rule {
	return Rule{
		Name: "min",
		Check: func(value string) error {
			if value == "" {
				return nil
			}
			n, err := strconv.Atoi(value)
			if err != nil {
				// Integer reports the parse failure.
				return nil
			}
			if n < min {
				return fmt.Errorf("must be at least %d", min)
			}
			return nil
		},
	}
}

// ValidDate rejects values that are not a real calendar date in the given layout.
func ValidDate(layout string) Rule {
	return Rule{
		Name: "date",
		Check: func(value string) error {
			if value == "" {
				return nil
			}
			if _, err := time.Parse(layout, value); err != nil {
				return errors.New("must be a valid date")
			}
			return nil
		},
	}
}

// MemberOf rejects values outside an enumerated id set.
func MemberOf(allowed map[int64]string) Rule {
	return Rule{
		Name: "member",
		Check: func(value string) error {
			if value == "" {
				return nil
			}
			id, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return errors.New("must be a known category")
			}
			if _, ok := allowed[id]; !ok {
				return errors.New("must be a known category")
			}
			return nil
		},
	}
}

// FileRequired rejects submissions with no uploaded file.
func FileRequired() FileRule {
	return FileRule{
		Name: "required",
		Check: func(filename string, size int) error {
			if filename == "" || size == 0 {
				return errors.New("an image is required")
			}
			return nil
		},
	}
}

// FileMaxSize rejects files whose decoded size exceeds max bytes.
func FileMaxSize(max int) FileRule {
	return FileRule{
		Name: "max_size",
		Check: func(filename string, size int) error {
			if size > max {
				return fmt.Errorf("the image must not exceed %dKB", max/1024)
			}
			return nil
		},
	}
}

// runRules applies every rule in order and returns all failure messages.
func runRules(rules []Rule, value string) []string {
	var msgs []string
	for _, rule := range rules {
		if err := rule.Check(value); err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	return msgs
}

// runFileRules applies every file rule in order and returns all failure messages.
func runFileRules(rules []FileRule, filename string, size int) []string {
	var msgs []string
	for _, rule := range rules {
		if err := rule.Check(filename, size); err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	return msgs
}
