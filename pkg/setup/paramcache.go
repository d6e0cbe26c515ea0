package setup

import (
	"fmt"
	"sync"

	"github.com/MuriData/kontor-por/pkg/config"
	"github.com/MuriData/kontor-por/pkg/telemetry"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
)

// ShapeKey indexes the process-wide parameter cache. spec.md §9 keys
// parameters by the circuit shape triple alone; this module's folded
// circuit also depends on NumSteps (the unrolled step count — see
// DESIGN.md "pkg/fold" for why no true Nova folding library was available
// to avoid this), so NumSteps is folded into the key too.
type ShapeKey struct {
	FilesPerStep        int
	FileTreeDepth        int
	AggregatedTreeDepth int
	NumSteps            int
}

// PorParams bundles the compiled constraint system and Groth16 keys for
// one shape, held by shared-ownership (a pointer handed out to every
// caller) so concurrent readers never block each other after lookup
// (spec.md §5).
type PorParams struct {
	CCS constraint.ConstraintSystem
	PK  groth16.ProvingKey
	VK  groth16.VerifyingKey
}

// paramCache is a bounded, mutex-guarded cache that evicts the
// oldest-inserted entry on overflow (lookups do not refresh an entry's
// position). Eviction is never observable to correctness.
type paramCache struct {
	mu      sync.Mutex
	entries map[ShapeKey]*PorParams
	order   []ShapeKey
}

var globalParamCache = &paramCache{entries: make(map[ShapeKey]*PorParams)}

func (c *paramCache) get(key ShapeKey) (*PorParams, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.entries[key]
	return p, ok
}

func (c *paramCache) put(key ShapeKey, p *PorParams) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists {
		if len(c.order) >= config.ParamCacheCapacity {
			evict := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, evict)
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = p
}

// CachedParams looks up previously generated parameters without
// generating them, for a verifier that must reuse the same parameters the
// prover produced within this process.
func CachedParams(key ShapeKey) (*PorParams, bool) {
	return globalParamCache.get(key)
}

// SeedParams installs externally produced parameters for key into the
// process-wide cache, so that a trusted setup performed out of band (a
// single-party DevSetup, or a multi-party ceremony sealed via
// CeremonyP2Verify/ExportKeys) actually feeds Prove/Verify instead of being
// silently bypassed by ParamsForShape's own ad hoc groth16.Setup. Callers
// load keys from disk with LoadKeys and pass them here before the first
// Prove/Verify call for the shape; ParamsForShape's cache check then hits
// and never re-runs setup.
func SeedParams(key ShapeKey, ccs constraint.ConstraintSystem, pk groth16.ProvingKey, vk groth16.VerifyingKey) {
	globalParamCache.put(key, &PorParams{CCS: ccs, PK: pk, VK: vk})
}

// ParamsForShape returns cached Groth16 parameters for key, generating them
// via a single-party dev setup (see DevSetup's production-unsafety
// warning) and caching the result if absent. This is a pure memoization of
// circuit setup: concurrent callers racing to generate the same shape may
// each pay the setup cost once, but correctness never depends on which
// generation wins the cache write.
func ParamsForShape(key ShapeKey, circuit frontend.Circuit) (*PorParams, error) {
	if p, ok := globalParamCache.get(key); ok {
		telemetry.Logger().Debug().Interface("shape", key).Msg("param cache hit")
		return p, nil
	}

	telemetry.Logger().Info().Interface("shape", key).Msg("param cache miss: compiling and running setup")
	ccs, err := CompileCircuit(circuit)
	if err != nil {
		return nil, err
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("groth16 setup for shape %+v: %w", key, err)
	}

	params := &PorParams{CCS: ccs, PK: pk, VK: vk}
	globalParamCache.put(key, params)
	return params, nil
}
