// Package discovery finds emulated LoRaWAN devices and gateways on the local
// network over mDNS.
//
// Emulated entities advertise the "_lorasim._tcp" service with TXT records:
//
//	eui=70B3D57ED0000001   hardware EUI (required, 16 hex characters)
//	kind=device|gateway    defaults to device
//	name=Field sensor      display name
//	id=sensor-1            inventory ID (defaults to the instance name)
//	join_eui=...           device JoinEUI
//
// Scan results convert to inventory entries with Node.ToEntity, which is how
// "lorasim-provision scan --add" fills the inventory.
//
// Requires multicast on the local segment and UDP 5353 open.
package discovery
