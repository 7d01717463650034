package collection

import (
	"fmt"
	"strings"
)

// Name is the result of resolving a client-supplied queue name: the master
// segment (equal to Raw for a plain queue) and whether Raw denotes a fanout
// child (master+tag).
type Name struct {
	Raw           string
	Master        string
	IsFanoutChild bool
}

// Resolve is a pure function with no registry access: it validates
// characters and splits a fanout-child name into its master and tag. The
// resolver never consults any registry; callers combine its output with
// alias/registry lookups themselves.
func Resolve(raw string) (Name, error) {
	if err := CheckCharacters(raw); err != nil {
		return Name{}, err
	}
	if idx := strings.IndexByte(raw, '+'); idx >= 0 {
		master := raw[:idx]
		return Name{Raw: raw, Master: master, IsFanoutChild: true}, nil
	}
	return Name{Raw: raw, Master: raw, IsFanoutChild: false}, nil
}

// CheckCharacters rejects the characters forbidden in a queue name ('.',
// '/', '~') and more than one '+'. An empty tag after a single '+' is
// permitted.
func CheckCharacters(raw string) error {
	if strings.ContainsAny(raw, "./~") {
		return fmt.Errorf("%w: %q contains a forbidden character", ErrIllegalName, raw)
	}
	if strings.Count(raw, "+") > 1 {
		return fmt.Errorf("%w: %q has more than one '+'", ErrIllegalName, raw)
	}
	return nil
}
