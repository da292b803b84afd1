// Copyright (c) 2025 The OpenFiscal Authors
// SPDX-License-Identifier: BSD-2-Clause

// Package envelope builds the signed SOAP envelope carrying a sale
// registration and parses and verifies the authority's signed reply.
//
// Signing covers specific subtrees, not the whole document: the body
// subtree is digested and the SignedInfo subtree is signed, both over their
// exclusive comment-free canonical form. The element names and namespaces
// are fixed by the EET v3 protocol and reproduced exactly.
package envelope
