// Package mqtt mirrors the companion to Home Assistant: discovery configs
// for a mode sensor, a decoration count sensor and a status sensor, their
// retained states, and an availability topic with an "offline" will.
//
// The connection is managed by Paho's [autopaho] package, which reconnects
// on its own and republishes discovery and availability on every connect.
package mqtt
