// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

/*
Package supervisor runs the audit server's long-lived components under a
suture v4 supervisor tree.

# Tree

	RootSupervisor ("nexusaudit")
	├── DataSupervisor ("data-layer")
	│   └── audit.Sweeper ("retention-sweeper")
	├── MessagingSupervisor ("messaging-layer")
	│   ├── websocket.Hub
	│   ├── eventbus.Forwarder ("notification-forwarder")
	│   └── websocket.NATSBridge (if NATS is configured)
	└── APISupervisor ("api-layer")
	    └── services.HTTPServerService ("http-server")

A failed service is restarted by its layer. When failures exceed
FailureThreshold the layer backs off for FailureBackoff; the failure count
decays at FailureDecay per second. Cancelling the context passed to Serve
stops every service, waiting at most ShutdownTimeout for each.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return err
	}
	tree.Register(supervisor.Services{
		Sweeper:   sweeper,
		Hub:       hub,
		Forwarder: forwarder,
		HTTP:      services.NewHTTPServerService(server, services.TCPListen(addr), 10*time.Second),
	})
	return tree.Serve(ctx)

Supervisor events (restarts, backoff, stop timeouts) are logged through
sutureslog, bridged to zerolog by logging.NewSlogLogger.
*/
package supervisor
