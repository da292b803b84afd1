// Copyright (c) 2025 The OpenFiscal Authors
// SPDX-License-Identifier: BSD-2-Clause

// Package dispatch turns a single unreliable network call into an
// at-least-once delivery process with well-defined state transitions.
//
// A record moves Unsent to SentSuccess or SentRejected when the gateway
// produces a definitive outcome, and to PendingRetry when the transport or
// the reply's verification fails. Queued records are re-attempted in
// insertion order by dispatch passes, each pass running to completion
// before the next begins so later-queued records are never starved.
package dispatch
