// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app contains the Controller, which owns all routerchat state and
// exposes it to the terminal UI and the CLI as commands and a read-only
// Snapshot.
//
// Every command validates its preconditions, mutates the key registry or
// session store, and writes the touched slots through to storage. Network
// calls run without the controller lock held, so the UI stays responsive
// while a reply or a key check is outstanding.
//
// # Usage
//
//	ctrl := app.New(app.Options{Store: store, Client: client, Logger: logger})
//	if _, err := ctrl.AddKey("personal", secret); err != nil { ... }
//	reply, err := ctrl.SendMessage(ctx, "Hello")
//	snap := ctrl.Snapshot()
package app
