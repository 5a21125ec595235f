package harness

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// ExpectationError describes one failed expectation.
type ExpectationError struct {
	What     string
	Expected string
	Actual   string
}

func (e *ExpectationError) Error() string {
	return fmt.Sprintf("expectation failed: %s\n  Expected: %s\n  Actual: %s", e.What, e.Expected, e.Actual)
}

// checkExpectations compares a run result to the scenario's expectations
// and returns one message per mismatch.
func checkExpectations(r *Result, exp Expect) []string {
	var errs []string
	fail := func(what, expected, actual string) {
		errs = append(errs, (&ExpectationError{What: what, Expected: expected, Actual: actual}).Error())
	}

	if exp.Error != r.ErrorCode {
		want := exp.Error
		if want == "" {
			want = "clean end of stream"
		}
		got := r.ErrorCode
		if got == "" {
			got = "clean end of stream"
		} else {
			got = r.RunError
		}
		fail("error", want, got)
	}

	handlers := make([]string, 0, len(exp.Commands))
	for name := range exp.Commands {
		handlers = append(handlers, name)
	}
	sort.Strings(handlers)
	for _, name := range handlers {
		want, got := exp.Commands[name], r.Commands[name]
		if !slices.Equal(want, got) {
			fail("commands for "+name, formatList(want), formatList(got))
		}
	}

	if exp.Replies != nil && !slices.Equal(exp.Replies, r.Replies) {
		fail("replies", formatList(exp.Replies), formatList(r.Replies))
	}
	if exp.Malformed != nil && *exp.Malformed != r.Malformed {
		fail("malformed", fmt.Sprint(*exp.Malformed), fmt.Sprint(r.Malformed))
	}
	if exp.Pending != nil && *exp.Pending != r.Pending {
		fail("pending", fmt.Sprintf("%q", *exp.Pending), fmt.Sprintf("%q", r.Pending))
	}
	return errs
}

func formatList(s []string) string {
	if len(s) == 0 {
		return "[]"
	}
	return "[" + strings.Join(s, ", ") + "]"
}
