package registry

import (
	"strings"

	"github.com/muurk/lorasim/internal/provision"
	"github.com/muurk/lorasim/internal/urls"
)

// Rights the API key must carry to manage application end devices
const (
	RightApplicationAll          = "RIGHT_APPLICATION_ALL"
	RightApplicationDevicesRead  = "RIGHT_APPLICATION_DEVICES_READ"
	RightApplicationDevicesWrite = "RIGHT_APPLICATION_DEVICES_WRITE"
)

// RequiredRights lists the rights checked by TestCredentials
var RequiredRights = []string{RightApplicationDevicesRead, RightApplicationDevicesWrite}

// LoRaWAN versions sent for emulated OTAA devices
const (
	DefaultMACVersion = "MAC_V1_0_3"
	DefaultPHYVersion = "PHY_V1_0_3_REV_A"
)

// RightsResponse is the body of GET /api/v3/applications/{id}/rights
type RightsResponse struct {
	Rights []string `json:"rights"`
}

// Missing returns the required rights not present in the response
func (r RightsResponse) Missing() []string {
	have := make(map[string]bool, len(r.Rights))
	for _, right := range r.Rights {
		have[right] = true
	}
	if have[RightApplicationAll] {
		return nil
	}
	var missing []string
	for _, right := range RequiredRights {
		if !have[right] {
			missing = append(missing, right)
		}
	}
	return missing
}

// ApplicationIdentifiers identifies an application
type ApplicationIdentifiers struct {
	ApplicationID string `json:"application_id"`
}

// EndDeviceIdentifiers identifies an end device
type EndDeviceIdentifiers struct {
	DeviceID       string                 `json:"device_id"`
	ApplicationIDs ApplicationIdentifiers `json:"application_ids"`
	DevEUI         string                 `json:"dev_eui,omitempty"`
	JoinEUI        string                 `json:"join_eui,omitempty"`
}

// EndDevice is the subset of the registry's end device we write
type EndDevice struct {
	IDs                  EndDeviceIdentifiers `json:"ids"`
	Name                 string               `json:"name,omitempty"`
	FrequencyPlanID      string               `json:"frequency_plan_id,omitempty"`
	LoRaWANVersion       string               `json:"lorawan_version,omitempty"`
	LoRaWANPHYVersion    string               `json:"lorawan_phy_version,omitempty"`
	SupportsJoin         bool                 `json:"supports_join,omitempty"`
	NetworkServerAddress string               `json:"network_server_address,omitempty"`
	JoinServerAddress    string               `json:"join_server_address,omitempty"`
	AppServerAddress     string               `json:"application_server_address,omitempty"`
	RootKeys             *RootKeys            `json:"root_keys,omitempty"`
}

// RootKeys holds OTAA root keys for the join server
type RootKeys struct {
	AppKey *KeyEnvelope `json:"app_key,omitempty"`
}

// KeyEnvelope wraps a hex-encoded AES key
type KeyEnvelope struct {
	Key string `json:"key"`
}

// FieldMask lists the fields a request sets
type FieldMask struct {
	Paths []string `json:"paths"`
}

// SetEndDeviceRequest is the body of device create/set calls
type SetEndDeviceRequest struct {
	EndDevice EndDevice `json:"end_device"`
	FieldMask FieldMask `json:"field_mask"`
}

// GatewayIdentifiers identifies a gateway
type GatewayIdentifiers struct {
	GatewayID string `json:"gateway_id"`
	EUI       string `json:"eui,omitempty"`
}

// Gateway is the subset of the registry's gateway we write
type Gateway struct {
	IDs                  GatewayIdentifiers `json:"ids"`
	Name                 string             `json:"name,omitempty"`
	FrequencyPlanID      string             `json:"frequency_plan_id,omitempty"`
	FrequencyPlanIDs     []string           `json:"frequency_plan_ids,omitempty"`
	GatewayServerAddress string             `json:"gateway_server_address,omitempty"`
	EnforceDutyCycle     bool               `json:"enforce_duty_cycle"`
	StatusPublic         bool               `json:"status_public"`
	LocationPublic       bool               `json:"location_public"`
}

// CreateGatewayRequest is the body of POST /api/v3/users/{id}/gateways
type CreateGatewayRequest struct {
	Gateway Gateway `json:"gateway"`
}

// ErrorResponse is the registry's error body
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewDeviceCreate builds the identity server create request for a device
func NewDeviceCreate(req provision.RegistrationRequest, cfg provision.RegistryConfig) SetEndDeviceRequest {
	host := urls.ClusterHost(cfg.Cluster)
	return SetEndDeviceRequest{
		EndDevice: EndDevice{
			IDs:                  deviceIDs(req, cfg),
			Name:                 req.Entity.Label(),
			NetworkServerAddress: host,
			JoinServerAddress:    host,
			AppServerAddress:     host,
		},
		FieldMask: FieldMask{Paths: []string{
			"name",
			"network_server_address",
			"join_server_address",
			"application_server_address",
		}},
	}
}

// NewDeviceNetworkSettings builds the network server request that carries
// the frequency plan and MAC settings
func NewDeviceNetworkSettings(req provision.RegistrationRequest, cfg provision.RegistryConfig) SetEndDeviceRequest {
	return SetEndDeviceRequest{
		EndDevice: EndDevice{
			IDs:               deviceIDs(req, cfg),
			FrequencyPlanID:   req.FrequencyPlan,
			LoRaWANVersion:    DefaultMACVersion,
			LoRaWANPHYVersion: DefaultPHYVersion,
			SupportsJoin:      req.ActivationMode == provision.ActivationOTAA,
		},
		FieldMask: FieldMask{Paths: []string{
			"frequency_plan_id",
			"lorawan_version",
			"lorawan_phy_version",
			"supports_join",
		}},
	}
}

// NewDeviceRootKeys builds the join server request that stores the AppKey
func NewDeviceRootKeys(req provision.RegistrationRequest, cfg provision.RegistryConfig, appKey string) SetEndDeviceRequest {
	return SetEndDeviceRequest{
		EndDevice: EndDevice{
			IDs:      deviceIDs(req, cfg),
			RootKeys: &RootKeys{AppKey: &KeyEnvelope{Key: strings.ToUpper(appKey)}},
		},
		FieldMask: FieldMask{Paths: []string{"root_keys.app_key.key"}},
	}
}

// NewGatewayCreate builds the create request for a gateway
func NewGatewayCreate(req provision.RegistrationRequest, cfg provision.RegistryConfig) CreateGatewayRequest {
	return CreateGatewayRequest{
		Gateway: Gateway{
			IDs: GatewayIdentifiers{
				GatewayID: req.RemoteID,
				EUI:       strings.ToUpper(req.Entity.HardwareEUI),
			},
			Name:                 req.Entity.Label(),
			FrequencyPlanID:      req.FrequencyPlan,
			FrequencyPlanIDs:     []string{req.FrequencyPlan},
			GatewayServerAddress: urls.ClusterHost(cfg.Cluster),
			EnforceDutyCycle:     true,
		},
	}
}

func deviceIDs(req provision.RegistrationRequest, cfg provision.RegistryConfig) EndDeviceIdentifiers {
	joinEUI := req.Entity.JoinEUI
	if joinEUI == "" {
		joinEUI = "0000000000000000"
	}
	return EndDeviceIdentifiers{
		DeviceID:       req.RemoteID,
		ApplicationIDs: ApplicationIdentifiers{ApplicationID: cfg.ApplicationID},
		DevEUI:         strings.ToUpper(req.Entity.HardwareEUI),
		JoinEUI:        strings.ToUpper(joinEUI),
	}
}
