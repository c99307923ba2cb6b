// Package eui derives registry identifiers from LoRaWAN hardware identifiers.
//
// Every emulated device and gateway is named by a 64-bit EUI written as 16
// hexadecimal characters. The network registry does not accept the raw EUI as
// an entity ID, so this package maps it to the registry's canonical form:
//
//	DeviceID("AABBCCDDEEFF0011")  -> "eui-aabbccddeeff0011"
//	GatewayID("AABBCCDDEEFF0011") -> "gw-eui-aabbccddeeff0011"
//
// Derivation is pure and deterministic. Two distinct well-formed EUIs never
// map to the same ID within a kind, and the device and gateway prefixes differ
// so the two namespaces cannot collide either.
//
// Input that is not exactly 16 hex characters (case-insensitive) is rejected
// with a *FormatError. Callers treat that as an entity-scoped problem: it
// blocks that one entity, never the whole run.
package eui
