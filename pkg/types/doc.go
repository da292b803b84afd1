// Copyright (c) 2025 The OpenFiscal Authors
// SPDX-License-Identifier: BSD-2-Clause

// Package types defines the validated value types of the EET v3 schema.
//
// Every type is an immutable wrapper around a primitive. Construction is the
// only validation point: a successfully constructed value satisfies its
// schema invariant for its whole lifetime, and its String method renders the
// canonical wire form consumed by the signed text and the XML attributes.
// Constructors return *ValidationError on invariant violation.
package types
