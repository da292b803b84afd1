// Copyright (c) 2025 The OpenFiscal Authors
// SPDX-License-Identifier: BSD-2-Clause

// Package sale carries the entities of the registration lifecycle: the
// immutable operator Config, the Record describing one reportable
// transaction, the Factory producing protocol-legal records, and the
// Response parsed from the authority's reply.
package sale
