// Copyright (c) 2025 The OpenFiscal Authors
// SPDX-License-Identifier: BSD-2-Clause

/*
Package goeet implements a client for the Czech EET (Elektronická evidence
tržeb) fiscal sale-registration protocol, schema v3.

# Overview

go-eet lets point-of-sale software register cash transactions with the
Financial Administration of the Czech Republic. Every sale is described by a
signed SOAP message carrying the sale data, a long offline proof (PKP, an RSA
signature over six canonical sale fields) and a short offline proof (BKP, a
formatted SHA-1 digest of the PKP). The authority answers with a FIK, the
fiscal identification code, which together with the BKP must appear on the
printed receipt. When the registration endpoint is unreachable, the receipt
is printed with PKP and BKP alone and the sale is re-registered later.

# Specifications Implemented

  - EET XML schema v3: http://fs.mfcr.cz/eet/schema/v3
  - SOAP 1.1 message envelopes
  - WS-Security 1.1.1 (X.509 token profile, BinarySecurityToken)
  - XML Signature Syntax and Processing: https://www.w3.org/TR/xmldsig-core1/
  - Exclusive XML Canonicalization 1.0

# Package Structure

	github.com/openfiscal/go-eet/pkg/types     - validated protocol value types
	github.com/openfiscal/go-eet/pkg/codes     - PKP/BKP fiscal code derivation
	github.com/openfiscal/go-eet/pkg/sale      - sale records, factory, responses
	github.com/openfiscal/go-eet/pkg/envelope  - signed envelope builder and verifier
	github.com/openfiscal/go-eet/pkg/dispatch  - delivery scheduler with retry queue
	github.com/openfiscal/go-eet/pkg/transport - HTTPS transport
	github.com/openfiscal/go-eet/pkg/certstore - keypair and authority CA loading

# Quick Start

See examples/basic for a complete registration round trip against the
playground environment.
*/
package goeet
