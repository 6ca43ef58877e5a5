package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/FuShang114/mooncell-admission-sim/sim"
	"github.com/FuShang114/mooncell-admission-sim/sim/workload"
)

// ScenarioConfig is the YAML shape of a scenario preset file.
type ScenarioConfig struct {
	Scenarios map[string]workload.Scenario `yaml:"scenarios"`
}

// LoadScenarios parses a scenario preset file.
func LoadScenarios(path string) (map[string]workload.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file %s: %w", path, err)
	}
	var cfg ScenarioConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing scenario file %s: %w", path, err)
	}
	for name, s := range cfg.Scenarios {
		if s.Name == "" {
			s.Name = name
			cfg.Scenarios[name] = s
		}
	}
	return cfg.Scenarios, nil
}

// presetScenarios are the built-in workloads used by the bucket and
// pipeline comparisons, overridable via --scenarios.
func presetScenarios() map[string]workload.Scenario {
	return map[string]workload.Scenario{
		"balanced_steady": {
			Name: "balanced_steady", DurationSec: 180,
			BaseLambda: 78, BurstLambda: 78,
			Profile: workload.ProfileMixed, NodeProfile: string(sim.FleetBalancedHigh),
		},
		"mixed_bursty": {
			Name: "mixed_bursty", DurationSec: 180,
			BaseLambda: 85, BurstLambda: 240,
			Bursts:  []workload.BurstWindow{{From: 35, To: 80}, {From: 120, To: 155}},
			Profile: workload.ProfileMixed, NodeProfile: string(sim.FleetBalanced),
		},
		"token_heavy": {
			Name: "token_heavy", DurationSec: 180,
			BaseLambda: 95, BurstLambda: 170,
			Bursts:  []workload.BurstWindow{{From: 60, To: 95}, {From: 130, To: 160}},
			Profile: workload.ProfileTokenHeavy, NodeProfile: string(sim.FleetTPMTight),
		},
		"long_context": {
			Name: "long_context", DurationSec: 180,
			BaseLambda: 70, BurstLambda: 145,
			Bursts:  []workload.BurstWindow{{From: 70, To: 120}},
			Profile: workload.ProfileLong, NodeProfile: string(sim.FleetTPMTight),
		},
	}
}

// resolveScenario returns the named scenario from the override file if
// one is configured, else from the built-in presets.
func resolveScenario(name, overridePath string) (workload.Scenario, error) {
	if overridePath != "" {
		scenarios, err := LoadScenarios(overridePath)
		if err != nil {
			return workload.Scenario{}, err
		}
		if s, ok := scenarios[name]; ok {
			logrus.Infof("Using scenario %q from %s", name, overridePath)
			return s, nil
		}
	}
	if s, ok := presetScenarios()[name]; ok {
		return s, nil
	}
	return workload.Scenario{}, fmt.Errorf("unknown scenario %q", name)
}
