// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

/*
Package websocket delivers advisory notifications to browser sessions.

Notifications are best effort: the audit store is the system of record, so
a notification for a user with no open session is dropped rather than
queued.

Key Components:

  - Hub: registry of connected clients; fan-out by user or to everyone
  - Client: one connection with its read and write goroutines
  - NATSBridge: accepts notifications published by other services

Client Lifecycle:

	Connected  --subscribe{userId}-->  Subscribed  --close-->  Closed
	    |                                                        ^
	    +----------------------------close-----------------------+

On open the hub sends {"type":"connected"}. A client sends
{"type":"subscribe","userId":"..."} to receive that user's notifications;
subscribing again replaces the user id. {"type":"ping"} is answered with
{"type":"pong","timestamp":...}. Anything else is ignored.

Delivery:

Each client has a bounded send queue. When it overflows the oldest queued
frame is dropped. A client whose write fails is closed and unregistered;
other clients are unaffected. Inbound frames are rate limited per client
with golang.org/x/time/rate.

Usage:

	hub := websocket.NewHub(websocket.DefaultConfig())
	supervisor.Add(hub)
	router.Get("/ws", hub.ServeWS)

	hub.NotifyUser("emp-42", map[string]any{"action": "request_approved"})
*/
package websocket
