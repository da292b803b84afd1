// Copyright (c) 2025 The OpenFiscal Authors
// SPDX-License-Identifier: BSD-2-Clause

// Package codes derives the two offline fiscal codes printed on receipts:
// the PKP (taxpayer's signature code) and the BKP (taxpayer's security
// code). Both are deterministic functions of six canonical sale fields and
// the operator's RSA-2048 private key, so a receipt can be audited offline.
package codes
