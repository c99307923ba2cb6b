// Package urls provides centralized constants for registry endpoints and
// documentation URLs used throughout the application.
//
// Cluster endpoints are derived from the cluster name so a new region only
// needs an entry in Clusters. Documentation URLs are exported constants that
// can be updated in a single location.
//
// Usage:
//
//	import "github.com/muurk/lorasim/internal/urls"
//
//	base := urls.ClusterBaseURL("eu1") // https://eu1.cloud.thethings.network
//	fmt.Printf("Create an API key: %s\n", urls.APIKeysGuide)
package urls
