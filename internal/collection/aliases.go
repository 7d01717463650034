package collection

import "github.com/sudhishp/kestrel/internal/alias"

// aliasRegistry is the authoritative mapping from alias name to live
// AliasedQueue. Like registry, it holds no lock of its own: every method
// assumes the caller holds Collection's single coarse mutex.
type aliasRegistry struct {
	aliases map[string]*alias.Queue
}

func newAliasRegistry() *aliasRegistry {
	return &aliasRegistry{aliases: make(map[string]*alias.Queue)}
}

func (a *aliasRegistry) lookup(name string) *alias.Queue {
	return a.aliases[name]
}

func (a *aliasRegistry) put(name string, q *alias.Queue) {
	a.aliases[name] = q
}

func (a *aliasRegistry) count() int {
	return len(a.aliases)
}
