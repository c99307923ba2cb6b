// Package registry provides an HTTP client for The Things Stack, the LoRaWAN
// network registry that emulated devices and gateways are provisioned into.
//
// Client implements provision.Registry. It talks to the cluster selected in
// the registry configuration (https://<cluster>.cloud.thethings.network) or
// to a fixed base URL for private deployments and tests.
//
// # Calls
//
//	GET  /api/v3/applications/{app}/rights               credential test
//	GET  /api/v3/applications/{app}/devices/{id}         device existence
//	GET  /api/v3/gateways/{id}                           gateway existence
//	POST /api/v3/applications/{app}/devices              device create (identity server)
//	PUT  /api/v3/ns/applications/{app}/devices/{id}      frequency plan, MAC version
//	PUT  /api/v3/js/applications/{app}/devices/{id}      OTAA AppKey, when one resolves
//	POST /api/v3/users/{owner}/gateways                  gateway create
//
// A 409 from a create call means the entity is already registered and is
// reported as provision.RegisterAlreadyExists.
//
// # Credentials
//
// API keys are never stored in configuration. A credential reference names
// where to load the key from:
//
//	env:LORASIM_TTS_KEY
//	file:/run/secrets/tts-key
//
// Keys are sent as a Bearer token and never logged.
//
// # Errors And Retries
//
// Every failure is an *Error with a Type, the HTTP status when there was one,
// and a Retryable flag. Server errors, 429, timeouts and refused connections
// are retried with exponential backoff; 4xx responses never are.
// GetShortErrorMessage and GetTroubleshootingHint turn an error into text for
// the operator.
package registry
