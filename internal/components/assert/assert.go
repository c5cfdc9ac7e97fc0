package assert

import "fmt"

func NotNil(value any, name ...string) {
	if value == nil {
		panic(fmt.Sprintf("expected %s to be not nil", label(name)))
	}
}

func NotEmptyStr(str string, name ...string) {
	if str == "" {
		panic(fmt.Sprintf("expected %s to be non-empty", label(name)))
	}
}

// Equal panics when two comparable values differ, it is used for internal
// invariants whose violation means a bug rather than bad input.
func Equal[T comparable](expected, actual T, name ...string) {
	if expected != actual {
		panic(fmt.Sprintf("expected %s to be %v, got %v", label(name), expected, actual))
	}
}

func label(name []string) string {
	if len(name) == 0 {
		return "value"
	}
	return name[0]
}
