package sim

import (
	"fmt"
	"strconv"
	"strings"
)

// NameMustBeValid panics if name does not follow the naming convention.
// A name is a dot-separated path such as "Cache.TopPort". Every element
// starts with a capital letter, contains no '_', '-' or quotes, and may end
// with integer indices in square brackets, as in "Bank[2]".
func NameMustBeValid(name string) {
	for _, elem := range strings.Split(name, ".") {
		if err := checkNameElement(elem); err != nil {
			panic(fmt.Sprintf("Name %s is not valid: %v", name, err))
		}
	}
}

func checkNameElement(elem string) error {
	base, indices, found := strings.Cut(elem, "[")
	if found {
		indices = "[" + indices
	}

	if strings.Contains(base, "]") {
		return fmt.Errorf("unmatched bracket")
	}

	if base == "" {
		return fmt.Errorf("element must not be empty")
	}

	if strings.ContainsAny(base, "_-\"'") {
		return fmt.Errorf("element %q contains an invalid character", base)
	}

	if base[0] < 'A' || base[0] > 'Z' {
		return fmt.Errorf("element %q must start with a capital letter", base)
	}

	return checkIndices(indices)
}

// checkIndices accepts a sequence like "[0][12]".
func checkIndices(s string) error {
	for s != "" {
		if s[0] != '[' {
			return fmt.Errorf("unexpected %q", s)
		}

		end := strings.IndexByte(s, ']')
		if end < 0 {
			return fmt.Errorf("unmatched bracket")
		}

		if _, err := strconv.Atoi(s[1:end]); err != nil {
			return fmt.Errorf("index %q is not an integer", s[1:end])
		}

		s = s[end+1:]
	}

	return nil
}

// BuildName joins a parent name and an element name.
func BuildName(parentName, elementName string) string {
	if parentName == "" {
		return elementName
	}

	return parentName + "." + elementName
}
