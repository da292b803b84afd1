package envelope

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/leifj/signedxml"

	"github.com/openfiscal/go-eet/pkg/sale"
	"github.com/openfiscal/go-eet/pkg/types"
)

var (
	// ErrUntrustedPeer means the embedded certificate does not belong to
	// the authority.
	ErrUntrustedPeer = errors.New("untrusted peer certificate")
	// ErrExpiredCertificate means the embedded certificate is outside its
	// validity window.
	ErrExpiredCertificate = errors.New("peer certificate expired or not yet valid")
	// ErrInvalidSignature means the signature value does not verify
	// against the canonical SignedInfo.
	ErrInvalidSignature = errors.New("invalid envelope signature")
	// ErrDigestMismatch means the recomputed body digest differs from the
	// declared one.
	ErrDigestMismatch = errors.New("body digest mismatch")
	// ErrInvalidReference means a fragment cross-reference does not point
	// at the element it must.
	ErrInvalidReference = errors.New("invalid signature reference")
	// ErrMalformedResponse means the reply is not a well-formed protocol
	// document.
	ErrMalformedResponse = errors.New("malformed response")
)

// Parser parses a reply envelope into a Response, verifying the security
// header when one is present.
type Parser struct {
	authority     string
	roots         *x509.CertPool
	skipSignature bool
	now           func() time.Time
}

// ParserOption customizes a Parser.
type ParserOption func(*Parser)

// WithAuthority overrides the organization name expected on the peer
// certificate. The default is the Financial Administration's legal name.
func WithAuthority(name string) ParserOption {
	return func(p *Parser) { p.authority = name }
}

// WithTrustedRoots additionally chain-verifies the peer certificate
// against the given pool, normally the authority CA from certstore.
func WithTrustedRoots(roots *x509.CertPool) ParserOption {
	return func(p *Parser) { p.roots = roots }
}

// WithInsecureSkipSignature disables the asymmetric signature check only.
// Digest and reference verification always run. Never use in production.
func WithInsecureSkipSignature() ParserOption {
	return func(p *Parser) { p.skipSignature = true }
}

// WithVerifyTime pins the instant used for the certificate validity check.
func WithVerifyTime(now func() time.Time) ParserOption {
	return func(p *Parser) { p.now = now }
}

// NewParser returns a parser expecting replies signed by the authority.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{authority: AuthorityLegalName, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse verifies and extracts a reply. Documents without a security header
// skip the signature layer entirely; this path exists for locally
// constructed and test documents, never for gateway traffic.
func (p *Parser) Parse(data []byte) (*sale.Response, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "Envelope" {
		return nil, fmt.Errorf("%w: no envelope root", ErrMalformedResponse)
	}

	body := childByTag(root, "Body")
	if body == nil {
		return nil, fmt.Errorf("%w: no body", ErrMalformedResponse)
	}

	header := childByTag(root, "Header")
	var security *etree.Element
	if header != nil {
		security = childByTag(header, "Security")
	}
	if security != nil {
		if err := p.verify(security, body); err != nil {
			return nil, err
		}
	}

	return extractResponse(body)
}

// verify runs the checks of the security header in fixed order: peer
// identity, certificate window, signature, digest, cross-references.
func (p *Parser) verify(security, body *etree.Element) error {
	cert, tokenID, err := p.peerCertificate(security)
	if err != nil {
		return err
	}

	if !p.organizationMatches(cert) {
		return fmt.Errorf("%w: certificate organization %q", ErrUntrustedPeer, strings.Join(cert.Subject.Organization, ", "))
	}

	now := p.now()
	if now.Before(cert.NotBefore) || now.After(cert.NotAfter) {
		return fmt.Errorf("%w: valid %s to %s", ErrExpiredCertificate,
			cert.NotBefore.Format(time.RFC3339), cert.NotAfter.Format(time.RFC3339))
	}

	if p.roots != nil {
		opts := x509.VerifyOptions{
			Roots:       p.roots,
			CurrentTime: now,
			KeyUsages:   []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
		}
		if _, err := cert.Verify(opts); err != nil {
			return fmt.Errorf("%w: chain verification: %v", ErrUntrustedPeer, err)
		}
	}

	signature := findByTag(security, "Signature")
	if signature == nil {
		return fmt.Errorf("%w: no signature element", ErrInvalidSignature)
	}
	signedInfo := childByTag(signature, "SignedInfo")
	if signedInfo == nil {
		return fmt.Errorf("%w: no signed-info element", ErrInvalidSignature)
	}

	if !p.skipSignature {
		if err := verifySignature(cert, signature, signedInfo); err != nil {
			return err
		}
	}

	if err := verifyBodyDigest(signedInfo, body); err != nil {
		return err
	}

	return verifyReferences(signature, signedInfo, body, tokenID)
}

// peerCertificate extracts the binary security token and its fragment id.
func (p *Parser) peerCertificate(security *etree.Element) (*x509.Certificate, string, error) {
	bst := findByTag(security, "BinarySecurityToken")
	if bst == nil {
		return nil, "", fmt.Errorf("%w: no binary security token", ErrUntrustedPeer)
	}
	der, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(bst.Text()), ""))
	if err != nil {
		return nil, "", fmt.Errorf("%w: token is not base64: %v", ErrUntrustedPeer, err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, "", fmt.Errorf("%w: token is not a certificate: %v", ErrUntrustedPeer, err)
	}
	return cert, wsuID(bst), nil
}

func (p *Parser) organizationMatches(cert *x509.Certificate) bool {
	for _, org := range cert.Subject.Organization {
		if org == p.authority {
			return true
		}
	}
	return false
}

// verifySignature checks the signature value against the canonical
// SignedInfo using the embedded certificate's public key.
func verifySignature(cert *x509.Certificate, signature, signedInfo *etree.Element) error {
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("%w: peer key is not RSA", ErrInvalidSignature)
	}
	sigValue := childByTag(signature, "SignatureValue")
	if sigValue == nil {
		return fmt.Errorf("%w: no signature value", ErrInvalidSignature)
	}
	sig, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(sigValue.Text()), ""))
	if err != nil {
		return fmt.Errorf("%w: signature value is not base64", ErrInvalidSignature)
	}

	canonicalizer := signedxml.ExclusiveCanonicalization{WithComments: false}
	canonical, err := canonicalizer.ProcessElement(signedInfo, "")
	if err != nil {
		return fmt.Errorf("%w: signed-info canonicalization: %v", ErrInvalidSignature, err)
	}
	digest := sha256.Sum256([]byte(canonical))
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

// verifyBodyDigest recomputes the digest over the canonical body subtree
// and compares it with the declared digest value.
func verifyBodyDigest(signedInfo, body *etree.Element) error {
	ref := childByTag(signedInfo, "Reference")
	if ref == nil {
		return fmt.Errorf("%w: no reference element", ErrDigestMismatch)
	}
	declared := childByTag(ref, "DigestValue")
	if declared == nil {
		return fmt.Errorf("%w: no digest value", ErrDigestMismatch)
	}

	canonicalizer := signedxml.ExclusiveCanonicalization{WithComments: false}
	canonical, err := canonicalizer.ProcessElement(body, "")
	if err != nil {
		return fmt.Errorf("%w: body canonicalization: %v", ErrDigestMismatch, err)
	}
	digest := sha256.Sum256([]byte(canonical))
	if base64.StdEncoding.EncodeToString(digest[:]) != strings.TrimSpace(declared.Text()) {
		return ErrDigestMismatch
	}
	return nil
}

// verifyReferences confirms the digest reference points at the body and
// the key reference points at the security token.
func verifyReferences(signature, signedInfo, body *etree.Element, tokenID string) error {
	ref := childByTag(signedInfo, "Reference")
	if ref == nil || ref.SelectAttrValue("URI", "") != "#"+wsuID(body) {
		return fmt.Errorf("%w: digest reference does not target the body", ErrInvalidReference)
	}

	keyInfo := childByTag(signature, "KeyInfo")
	if keyInfo == nil {
		return fmt.Errorf("%w: no key info", ErrInvalidReference)
	}
	keyRef := findByTag(keyInfo, "Reference")
	if keyRef == nil || keyRef.SelectAttrValue("URI", "") != "#"+tokenID {
		return fmt.Errorf("%w: key reference does not target the security token", ErrInvalidReference)
	}
	return nil
}

// extractResponse maps the Odpoved element onto a Response.
func extractResponse(body *etree.Element) (*sale.Response, error) {
	reply := childByTag(body, "Odpoved")
	if reply == nil {
		return nil, fmt.Errorf("%w: no Odpoved element", ErrMalformedResponse)
	}

	resp := &sale.Response{}

	if hlavicka := childByTag(reply, "Hlavicka"); hlavicka != nil {
		if v := hlavicka.SelectAttrValue("uuid_zpravy", ""); v != "" {
			id, err := types.NewMessageUUID(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
			}
			resp.UUID = id
		}
		if v := hlavicka.SelectAttrValue("bkp", ""); v != "" {
			bkp, err := types.NewBKP(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
			}
			resp.BKP = bkp
		}
		if v := hlavicka.SelectAttrValue("dat_prij", ""); v != "" {
			ts, err := types.ParseTimestamp(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
			}
			resp.Received = ts
		}
		if v := hlavicka.SelectAttrValue("dat_odmit", ""); v != "" {
			ts, err := types.ParseTimestamp(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
			}
			resp.Rejected = ts
		}
	}

	if potvrzeni := childByTag(reply, "Potvrzeni"); potvrzeni != nil {
		fik, err := types.NewFIK(potvrzeni.SelectAttrValue("fik", ""))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		resp.Confirmation = &sale.Confirmation{
			FIK:  fik,
			Test: potvrzeni.SelectAttrValue("test", "") == "true",
		}
	}

	if chyba := childByTag(reply, "Chyba"); chyba != nil {
		kod, err := strconv.Atoi(chyba.SelectAttrValue("kod", ""))
		if err != nil {
			return nil, fmt.Errorf("%w: error code: %v", ErrMalformedResponse, err)
		}
		code, err := types.NewErrorCode(kod)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		resp.Rejection = &sale.Rejection{
			Code:    code,
			Test:    chyba.SelectAttrValue("test", "") == "true",
			Message: strings.TrimSpace(chyba.Text()),
		}
	}

	// A reply carrying both payloads is protocol-illegal; reject rather
	// than guess precedence.
	if resp.Confirmation != nil && resp.Rejection != nil {
		return nil, fmt.Errorf("%w: both confirmation and rejection present", ErrMalformedResponse)
	}
	if resp.Confirmation == nil && resp.Rejection == nil {
		return nil, fmt.Errorf("%w: neither confirmation nor rejection present", ErrMalformedResponse)
	}

	for _, varovani := range childrenByTag(reply, "Varovani") {
		kod, err := strconv.Atoi(varovani.SelectAttrValue("kod_varov", ""))
		if err != nil {
			return nil, fmt.Errorf("%w: warning code: %v", ErrMalformedResponse, err)
		}
		code, err := types.NewWarningCode(kod)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		resp.Warnings = append(resp.Warnings, sale.Warning{
			Code:    code,
			Message: strings.TrimSpace(varovani.Text()),
		})
	}

	return resp, nil
}

// childByTag returns the first direct child with the given local tag,
// ignoring namespace prefixes.
func childByTag(e *etree.Element, tag string) *etree.Element {
	for _, c := range e.ChildElements() {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

// childrenByTag returns all direct children with the given local tag.
func childrenByTag(e *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	for _, c := range e.ChildElements() {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

// findByTag searches the subtree depth-first for the given local tag.
func findByTag(e *etree.Element, tag string) *etree.Element {
	for _, c := range e.ChildElements() {
		if c.Tag == tag {
			return c
		}
		if found := findByTag(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// wsuID reads the wsu:Id attribute regardless of prefix spelling.
func wsuID(e *etree.Element) string {
	for _, attr := range e.Attr {
		if attr.Key == "Id" && (attr.Space == "wsu" || attr.Space == "") {
			return attr.Value
		}
	}
	return ""
}
