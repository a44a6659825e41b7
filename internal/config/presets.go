package config

import "sort"

var Presets = map[string]map[string]*Config{
	"heatrod": {
		"soak": {
			Model: "heatrod", Method: "sparse", Dt: 0.5, Duration: 600.0,
			SparseTol: 1e-10, VerboseFailures: true,
		},
		"shock": {
			Model: "heatrod", Method: "sparse", Dt: 0.5, Duration: 900.0,
			SparseTol: 1e-10, VerboseFailures: true,
			Events: []EventConfig{{Time: 300.0, Param: "tleft", Value: 600.0}},
		},
		"dense": {
			Model: "heatrod", Method: "dense", Dt: 0.5, Duration: 600.0,
			VerboseFailures: true,
		},
	},
	"springchain": {
		"ring": {
			Model: "springchain", Method: "dense", Dt: 0.002, Duration: 10.0,
			VerboseFailures: true,
		},
		"softened": {
			Model: "springchain", Method: "dense", Dt: 0.002, Duration: 20.0,
			VerboseFailures: true,
			Events: []EventConfig{{Time: 5.0, Param: "stiffness", Value: 10.0}},
		},
	},
	"rcladder": {
		"charge": {
			Model: "rcladder", Method: "sparse", Dt: 0.01, Duration: 5.0,
			SparseTol: 1e-12, VerboseFailures: true,
		},
		"stepinput": {
			Model: "rcladder", Method: "sparse", Dt: 0.01, Duration: 8.0,
			SparseTol: 1e-12, VerboseFailures: true,
			Events: []EventConfig{{Time: 4.0, Param: "vin", Value: 0.0}},
		},
	},
}

func GetPreset(model, name string) *Config {
	group, ok := Presets[model]
	if !ok {
		return nil
	}
	return group[name]
}

func ListPresets(model string) []string {
	group, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(group))
	for name := range group {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
