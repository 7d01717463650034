package collection

import (
	"sync"

	"github.com/sudhishp/kestrel/internal/alias"
	"github.com/sudhishp/kestrel/internal/pqueue"
)

// QueueConfig and AliasConfig are the per-queue and per-alias configuration
// shapes the binder resolves. They are the same types pqueue and alias
// already define; collection only adds name-based resolution on top.
type QueueConfig = pqueue.Config
type AliasConfig = alias.Config

// configBinder holds the default PhysicalQueue config, a map from queue name
// to named config, and a map from alias name to alias config, and resolves
// the effective config for a given resolved Name with master fallback.
type configBinder struct {
	mu           sync.RWMutex
	def          QueueConfig
	queueConfigs map[string]QueueConfig
	aliasConfigs map[string]AliasConfig
}

func newConfigBinder(def QueueConfig, queueConfigs map[string]QueueConfig, aliasConfigs map[string]AliasConfig) *configBinder {
	b := &configBinder{def: def}
	b.setAll(def, queueConfigs, aliasConfigs)
	return b
}

// setAll atomically replaces all three fields, copying the input maps so the
// caller's maps can be mutated afterward without affecting the binder.
func (b *configBinder) setAll(def QueueConfig, queueConfigs map[string]QueueConfig, aliasConfigs map[string]AliasConfig) {
	qc := make(map[string]QueueConfig, len(queueConfigs))
	for k, v := range queueConfigs {
		qc[k] = v
	}
	ac := make(map[string]AliasConfig, len(aliasConfigs))
	for k, v := range aliasConfigs {
		ac[k] = v
	}
	b.mu.Lock()
	b.def = def
	b.queueConfigs = qc
	b.aliasConfigs = ac
	b.mu.Unlock()
}

// queueConfigFor resolves config = queueConfigs[name] or queueConfigs[master]
// or the default: fanout children fall back to their master's config when
// they have none of their own.
func (b *configBinder) queueConfigFor(n Name) QueueConfig {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if c, ok := b.queueConfigs[n.Raw]; ok {
		return c
	}
	if n.IsFanoutChild {
		if c, ok := b.queueConfigs[n.Master]; ok {
			return c
		}
	}
	return b.def
}

func (b *configBinder) hasQueueConfig(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.queueConfigs[name]
	return ok
}

func (b *configBinder) aliasConfigsSnapshot() map[string]AliasConfig {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]AliasConfig, len(b.aliasConfigs))
	for k, v := range b.aliasConfigs {
		out[k] = v
	}
	return out
}
