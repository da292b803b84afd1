// Copyright (c) 2025 The OpenFiscal Authors
// SPDX-License-Identifier: BSD-2-Clause

// Package transport implements the HTTPS client carrying registration
// messages to the gateway: POST opaque bytes, return opaque bytes, with a
// bounded timeout and TLS 1.2 or newer.
package transport
