// Copyright (c) 2025 The OpenFiscal Authors
// SPDX-License-Identifier: BSD-2-Clause

// Package certstore loads operator keypairs from PEM or PKCS#12 files and
// maintains a cached copy of the authority's CA certificate, re-downloaded
// from the fixed publication URL when the cache is missing, corrupt or
// expired.
package certstore
