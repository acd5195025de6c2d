// Package config provides loading and environment overlay for zkq server
// configuration. It exposes a Default() baseline plus JSON and YAML file
// loading and a ZKQ_* environment overlay.
//
// Example:
//
//	cfg := config.Default()
//	if fileCfg, err := config.Load("/etc/zkq/config.yaml"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg)
//	rt, _ := runtime.Open(ctx, runtime.Options{Config: cfg})
//	defer rt.Close()
package config
