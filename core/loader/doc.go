// Package loader registers the HTTP features served by the status API.
//
// Each feature implements Feature. The Manager keeps them in registration
// order and LoadAll mounts the enabled ones on a fiber router, stopping at the
// first failure.
//
//	mgr := loader.NewManager()
//	mgr.Register(status.NewFeature(...))
//	if err := mgr.LoadAll(app); err != nil { ... }
package loader
