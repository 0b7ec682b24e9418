package check

import (
	"github.com/lumen-lang/lumen/internal/ast"
	"github.com/lumen-lang/lumen/internal/types"
)

// cachedType is the memoized read path: a second call for the same node
// returns the cached result (spec §4.3). The first observation wins —
// cacheType never overwrites an existing entry.
func (c *Checker) cachedType(n ast.NodeIndex) (types.Index, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.cache[n]
	return t, ok
}

func (c *Checker) cacheType(n ast.NodeIndex, t types.Index) types.Index {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.cache[n]; ok {
		return existing
	}
	c.cache[n] = t
	return t
}

func (c *Checker) setConst(name string, v int64) {
	c.mu.Lock()
	c.consts[name] = v
	c.mu.Unlock()
}

func (c *Checker) getConst(name string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.consts[name]
	return v, ok
}
