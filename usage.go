package paramgraph

import "fmt"

// ScriptUsage is the fixed role of an Output node and of the script compiled from it.
type ScriptUsage uint8

const (
	UsageParticleSpawn ScriptUsage = iota
	UsageParticleUpdate
	UsageParticleEvent
	UsageEmitterSpawn
	UsageEmitterUpdate
	UsageSystemSpawn
	UsageSystemUpdate
	UsageFunction
	UsageDynamicInput
	UsageModule
)

var usageNames = [...]string{
	UsageParticleSpawn:  "ParticleSpawn",
	UsageParticleUpdate: "ParticleUpdate",
	UsageParticleEvent:  "ParticleEvent",
	UsageEmitterSpawn:   "EmitterSpawn",
	UsageEmitterUpdate:  "EmitterUpdate",
	UsageSystemSpawn:    "SystemSpawn",
	UsageSystemUpdate:   "SystemUpdate",
	UsageFunction:       "Function",
	UsageDynamicInput:   "DynamicInput",
	UsageModule:         "Module",
}

func (u ScriptUsage) String() string {
	if int(u) < len(usageNames) {
		return usageNames[u]
	}
	return fmt.Sprintf("ScriptUsage(%d)", uint8(u))
}

// ParseScriptUsage converts a usage name back to its value.
func ParseScriptUsage(s string) (ScriptUsage, error) {
	for i, name := range usageNames {
		if name == s {
			return ScriptUsage(i), nil
		}
	}
	return 0, fmt.Errorf("paramgraph: unknown script usage %q", s)
}

// IsSpawn reports whether the usage runs once when its owner is created.
func (u ScriptUsage) IsSpawn() bool {
	return u == UsageParticleSpawn || u == UsageEmitterSpawn || u == UsageSystemSpawn
}

// IsParticle reports whether the usage runs per particle.
func (u ScriptUsage) IsParticle() bool {
	return u == UsageParticleSpawn || u == UsageParticleUpdate || u == UsageParticleEvent
}

// IsCallable reports whether scripts of this usage are invoked through a FunctionCall node.
func (u ScriptUsage) IsCallable() bool {
	return u == UsageFunction || u == UsageModule || u == UsageDynamicInput
}

// UsageOccurrence selects the n-th Output node of a usage.
type UsageOccurrence struct {
	Usage      ScriptUsage `json:"usage"`
	Occurrence int         `json:"occurrence"`
}
