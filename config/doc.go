// Package config loads flowgraph definitions from YAML or JSON files and
// builds runnable graphs from them.
//
// # File Format
//
//	scheduler:
//	  workers: 4        # 1 invokes blocks inline
//	  chunk_size: 1024  # max samples per invocation
//	  buffer_size: 4096 # edge capacity in samples
//	blocks:
//	  - name: src
//	    type: probe.tag_source:float32
//	    properties:
//	      n_samples_max: 4096
//	  - name: gain
//	    type: math.multiply_const:float32
//	    properties:
//	      value: 2.5
//	  - name: snk
//	    type: probe.tag_sink:float32
//	connections:
//	  - from: src.out
//	    to: gain.in
//	  - from: gain.out
//	    to: [snk.in]
//
// A connection with more than one target is a broadcast. Block properties keep
// their document order and are handed to the block factory unchanged.
//
// # Basic Usage
//
//	loader := config.NewLoader()
//	loader.AddLayer("flows/base.yaml")
//	loader.AddLayer("flows/production.yaml") // Overrides base
//
//	cfg, err := loader.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	g, err := config.Build(cfg, registry, deps)
//
// # Layer Merging
//
// Non-zero scheduler settings from later layers win. A block declared again
// under the same name replaces the earlier declaration, and a connection from
// the same producer port replaces the earlier connection.
//
// # Environment Variable Overrides
//
//	export SIGFLOW_WORKERS=8
//	export SIGFLOW_CHUNK_SIZE=512
//	export SIGFLOW_BUFFER_SIZE=16384
//
// # File Checks
//
// Flowgraph files must be regular .json, .yaml or .yml files of at most 10MB,
// and relative paths must stay inside the working directory. Mappings and
// sequences may nest at most 100 levels in either format.
package config
