// Package events streams wizard events to WebSocket clients.
//
// A Hub fans provision.Event values out to every connected client as JSON
// text frames. New clients first receive the recent history so a viewer that
// joins mid-run sees the session so far. Hub.Observer plugs straight into
// provision.Options.
package events
