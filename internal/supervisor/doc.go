// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

/*
Package supervisor runs Rolegate's long-lived services under suture.

The tree has two layers below the root:

	rolegate
	├── core-layer   role refresh controller
	└── api-layer    HTTP command surface

A service that returns or panics is restarted with backoff by its layer. The
layers are separate so a crash-looping HTTP server never stops role refreshes,
and the reverse.

Supervisor events are logged through sutureslog using the zerolog bridge from
internal/logging:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddCoreService(refreshController)
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	errCh := tree.ServeBackground(ctx)
*/
package supervisor
