package urls

import "fmt"

// Registry cluster endpoints and documentation links.

// ClusterDomain is the domain under which The Things Stack Cloud clusters live
const ClusterDomain = "cloud.thethings.network"

// Clusters lists the regional clusters the tool knows about, in menu order.
var Clusters = []string{"eu1", "nam1", "au1"}

// ClusterHost returns the host name of a regional cluster ("eu1.cloud.thethings.network")
func ClusterHost(cluster string) string {
	return fmt.Sprintf("%s.%s", cluster, ClusterDomain)
}

// ClusterBaseURL returns the HTTPS base URL of a regional cluster
func ClusterBaseURL(cluster string) string {
	return "https://" + ClusterHost(cluster)
}

// KnownCluster reports whether cluster is one of Clusters
func KnownCluster(cluster string) bool {
	for _, c := range Clusters {
		if c == cluster {
			return true
		}
	}
	return false
}

// ConsoleApplication returns the console URL for an application on a cluster,
// where the operator can inspect registered devices.
func ConsoleApplication(cluster, applicationID string) string {
	return fmt.Sprintf("https://%s/console/applications/%s/devices", ClusterHost(cluster), applicationID)
}

// APIKeysGuide explains how to create an application API key with the
// device read/write rights the provisioner needs.
const APIKeysGuide = "https://www.thethingsindustries.com/docs/concepts/features/api-keys/"

// DeviceRegistrationGuide covers end device registration and OTAA parameters.
const DeviceRegistrationGuide = "https://www.thethingsindustries.com/docs/hardware/devices/adding-devices/"

// GatewayRegistrationGuide covers gateway registration and ownership.
const GatewayRegistrationGuide = "https://www.thethingsindustries.com/docs/hardware/gateways/concepts/adding-gateways/"

// FrequencyPlansReference lists the frequency plan IDs the registry accepts.
const FrequencyPlansReference = "https://www.thethingsindustries.com/docs/reference/frequency-plans/"
