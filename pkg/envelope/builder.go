package envelope

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/leifj/signedxml"

	"github.com/openfiscal/go-eet/pkg/codes"
	"github.com/openfiscal/go-eet/pkg/sale"
	"github.com/openfiscal/go-eet/pkg/types"
)

// Builder turns sale records into complete signed transport messages.
//
// The output is deterministic apart from the two freshly generated fragment
// ids and the send timestamp, which differ per call by design. The fiscal
// codes and the message uuid are stamped on the record once and reused on
// every later build of the same record.
type Builder struct {
	config *sale.Config
	clock  sale.Clock
}

// BuilderOption customizes a Builder.
type BuilderOption func(*Builder)

// WithBuildClock replaces the clock stamping the send timestamp.
func WithBuildClock(clock sale.Clock) BuilderOption {
	return func(b *Builder) { b.clock = clock }
}

// NewBuilder binds an envelope builder to the operator configuration.
func NewBuilder(config *sale.Config, opts ...BuilderOption) *Builder {
	b := &Builder{config: config, clock: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build signs and serializes one registration message for the record.
//
// First build stamps the message uuid and send timestamp and computes the
// fiscal codes; later builds of the same record refresh only the timestamp,
// keeping uuid and codes stable so the signed text never drifts across
// retry attempts. Build performs no network activity, so callers get every
// validation failure before the first byte leaves the process.
func (b *Builder) Build(rec *sale.Record) ([]byte, error) {
	msgUUID, err := types.NewMessageUUID(uuid.New().String())
	if err != nil {
		return nil, fmt.Errorf("message uuid: %w", err)
	}
	rec.StampHeader(msgUUID, types.NewTimestamp(b.clock()))

	if !rec.HasCodes() {
		data := rec.Data()
		pkp, bkp, err := codes.Compute(b.config.Key(), codes.Fields{
			Taxpayer: data.Taxpayer,
			Premises: data.Premises,
			Register: data.Register,
			Receipt:  data.Receipt,
			SaleTime: data.SaleTime,
			Total:    data.Total,
		})
		if err != nil {
			return nil, fmt.Errorf("fiscal codes: %w", err)
		}
		rec.SetCodes(pkp, bkp)
	}

	return b.buildEnvelope(rec)
}

// buildEnvelope assembles the SOAP document and signs the body subtree.
func (b *Builder) buildEnvelope(rec *sale.Record) ([]byte, error) {
	tokenID := "X509-" + uuid.New().String()
	bodyID := "id-" + uuid.New().String()

	doc := etree.NewDocument()
	env := doc.CreateElement("soap:Envelope")
	env.CreateAttr("xmlns:soap", NamespaceSOAP)

	header := env.CreateElement("soap:Header")
	security := header.CreateElement("wsse:Security")
	security.CreateAttr("xmlns:wsse", NamespaceWSSE)
	security.CreateAttr("xmlns:wsu", NamespaceWSU)
	security.CreateAttr("soap:mustUnderstand", "1")

	// Certificate stripped to bare base64 DER, per the X.509 token profile.
	bst := security.CreateElement("wsse:BinarySecurityToken")
	bst.CreateAttr("wsu:Id", tokenID)
	bst.CreateAttr("EncodingType", TokenEncodingBase64)
	bst.CreateAttr("ValueType", TokenValueTypeX509v3)
	bst.SetText(base64.StdEncoding.EncodeToString(b.config.Certificate().Raw))

	body := env.CreateElement("soap:Body")
	// Exclusive C14N needs the wsu declaration visible on the subtree root.
	body.CreateAttr("xmlns:wsu", NamespaceWSU)
	body.CreateAttr("wsu:Id", bodyID)
	b.buildSale(body, rec)

	// Digest over the canonical body subtree.
	canonicalizer := signedxml.ExclusiveCanonicalization{WithComments: false}
	canonicalBody, err := canonicalizer.ProcessElement(body, "")
	if err != nil {
		return nil, fmt.Errorf("body canonicalization: %w", err)
	}
	bodyDigest := sha256.Sum256([]byte(canonicalBody))

	sig := security.CreateElement("ds:Signature")
	sig.CreateAttr("xmlns:ds", NamespaceDS)

	signedInfo := sig.CreateElement("ds:SignedInfo")
	signedInfo.CreateAttr("xmlns:ds", NamespaceDS)
	signedInfo.CreateAttr("xmlns:soap", NamespaceSOAP)

	c14nMethod := signedInfo.CreateElement("ds:CanonicalizationMethod")
	c14nMethod.CreateAttr("Algorithm", AlgorithmExcC14N)
	sigMethod := signedInfo.CreateElement("ds:SignatureMethod")
	sigMethod.CreateAttr("Algorithm", AlgorithmRSASHA256)

	ref := signedInfo.CreateElement("ds:Reference")
	ref.CreateAttr("URI", "#"+bodyID)
	transforms := ref.CreateElement("ds:Transforms")
	transform := transforms.CreateElement("ds:Transform")
	transform.CreateAttr("Algorithm", AlgorithmExcC14N)
	digestMethod := ref.CreateElement("ds:DigestMethod")
	digestMethod.CreateAttr("Algorithm", AlgorithmSHA256)
	digestValue := ref.CreateElement("ds:DigestValue")
	digestValue.SetText(base64.StdEncoding.EncodeToString(bodyDigest[:]))

	// The signature covers the canonical SignedInfo subtree, which in turn
	// carries the body digest.
	canonicalSignedInfo, err := canonicalizer.ProcessElement(signedInfo, "")
	if err != nil {
		return nil, fmt.Errorf("signed-info canonicalization: %w", err)
	}
	signedInfoDigest := sha256.Sum256([]byte(canonicalSignedInfo))
	signature, err := rsa.SignPKCS1v15(rand.Reader, b.config.Key(), crypto.SHA256, signedInfoDigest[:])
	if err != nil {
		return nil, fmt.Errorf("envelope signature: %w", err)
	}

	sigValue := sig.CreateElement("ds:SignatureValue")
	sigValue.SetText(base64.StdEncoding.EncodeToString(signature))

	keyInfo := sig.CreateElement("ds:KeyInfo")
	tokenRef := keyInfo.CreateElement("wsse:SecurityTokenReference")
	tokenRefRef := tokenRef.CreateElement("wsse:Reference")
	tokenRefRef.CreateAttr("URI", "#"+tokenID)
	tokenRefRef.CreateAttr("ValueType", TokenValueTypeX509v3)

	// Compact serialization: indentation would add text nodes and change
	// the canonical form the authority recomputes.
	return doc.WriteToBytes()
}

// buildSale serializes the Trzba element from the record's non-absent
// fields. Absent optionals are omitted, never emitted as empty attributes.
func (b *Builder) buildSale(body *etree.Element, rec *sale.Record) {
	trzba := body.CreateElement("Trzba")
	trzba.CreateAttr("xmlns", NamespaceEET)

	head := rec.Header()
	hlavicka := trzba.CreateElement("Hlavicka")
	hlavicka.CreateAttr("uuid_zpravy", head.UUID.String())
	hlavicka.CreateAttr("dat_odesl", head.Sent.String())
	hlavicka.CreateAttr("prvni_zaslani", types.FormatBool(head.FirstSubmission))
	if head.Verification {
		hlavicka.CreateAttr("overeni", types.FormatBool(true))
	}

	d := rec.Data()
	data := trzba.CreateElement("Data")
	data.CreateAttr("dic_popl", d.Taxpayer.String())
	if !d.Delegating.IsZero() {
		data.CreateAttr("dic_poverujiciho", d.Delegating.String())
	}
	data.CreateAttr("id_provoz", d.Premises.String())
	data.CreateAttr("id_pokl", d.Register.String())
	data.CreateAttr("porad_cis", d.Receipt.String())
	data.CreateAttr("dat_trzby", d.SaleTime.String())
	data.CreateAttr("celk_trzba", d.Total.String())
	for _, attr := range d.Breakdown.Attrs() {
		data.CreateAttr(attr[0], attr[1])
	}
	regime := "0"
	if d.Simplified {
		regime = "1"
	}
	data.CreateAttr("rezim", regime)

	kody := trzba.CreateElement("KontrolniKody")
	pkp := kody.CreateElement("pkp")
	pkp.CreateAttr("digest", "SHA256")
	pkp.CreateAttr("cipher", "RSA2048")
	pkp.CreateAttr("encoding", "base64")
	pkp.SetText(rec.PKP().String())
	bkp := kody.CreateElement("bkp")
	bkp.CreateAttr("digest", "SHA1")
	bkp.CreateAttr("encoding", "base16")
	bkp.SetText(rec.BKP().String())
}
