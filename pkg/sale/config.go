package sale

import (
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"strings"

	"github.com/openfiscal/go-eet/pkg/types"
)

// Config immutably binds the operator's certificate and key to the premises
// and register identifiers used for every record it produces.
//
// The operating Mode is derived from the certificate issuer rather than
// supplied by the caller: a cert issued by the playground CA can never be
// mistaken for a production credential.
type Config struct {
	cert       *x509.Certificate
	key        *rsa.PrivateKey
	taxpayer   types.TaxpayerID
	delegating types.TaxpayerID
	premises   types.PremisesID
	register   types.RegisterID
	mode       types.Mode
}

// ConfigOption customizes optional Config fields.
type ConfigOption func(*configOptions)

type configOptions struct {
	delegating types.TaxpayerID
	taxpayer   types.TaxpayerID
}

// WithDelegatingTaxpayer sets the DIČ of the taxpayer who delegated the
// registration duty to the operator.
func WithDelegatingTaxpayer(id types.TaxpayerID) ConfigOption {
	return func(o *configOptions) { o.delegating = id }
}

// WithTaxpayer overrides the taxpayer id read from the certificate subject.
func WithTaxpayer(id types.TaxpayerID) ConfigOption {
	return func(o *configOptions) { o.taxpayer = id }
}

// NewConfig validates the operator credential and derives mode and taxpayer
// identity from the certificate. The key must be the RSA-2048 key matching
// the certificate's public key.
func NewConfig(cert *x509.Certificate, key *rsa.PrivateKey, premises types.PremisesID, register types.RegisterID, opts ...ConfigOption) (*Config, error) {
	if cert == nil {
		return nil, fmt.Errorf("certificate is required")
	}
	if key == nil {
		return nil, fmt.Errorf("private key is required")
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("certificate does not contain an RSA public key")
	}
	if pub.N.Cmp(key.N) != 0 {
		return nil, fmt.Errorf("private key does not match certificate")
	}

	var o configOptions
	for _, opt := range opts {
		opt(&o)
	}

	taxpayer := o.taxpayer
	if taxpayer.IsZero() {
		id, err := taxpayerFromSubject(cert)
		if err != nil {
			return nil, err
		}
		taxpayer = id
	}

	return &Config{
		cert:       cert,
		key:        key,
		taxpayer:   taxpayer,
		delegating: o.delegating,
		premises:   premises,
		register:   register,
		mode:       modeFromIssuer(cert),
	}, nil
}

// taxpayerFromSubject extracts the DIČ the authority encodes in the subject
// of operator certificates (CN for playground certs, serialNumber in
// production).
func taxpayerFromSubject(cert *x509.Certificate) (types.TaxpayerID, error) {
	candidates := []string{cert.Subject.CommonName, cert.Subject.SerialNumber}
	for _, c := range candidates {
		c = strings.TrimPrefix(c, "VATCZ-")
		if id, err := types.NewTaxpayerID(c); err == nil {
			return id, nil
		}
	}
	return types.TaxpayerID{}, fmt.Errorf("certificate subject %q carries no taxpayer id; use WithTaxpayer", cert.Subject.String())
}

// modeFromIssuer distinguishes the playground CA from the production CA by
// issuer common name.
func modeFromIssuer(cert *x509.Certificate) types.Mode {
	if strings.Contains(cert.Issuer.CommonName, "Playground") {
		return types.Playground
	}
	return types.Production
}

// Certificate returns the operator certificate embedded in envelopes.
func (c *Config) Certificate() *x509.Certificate { return c.cert }

// Key returns the operator's signing key.
func (c *Config) Key() *rsa.PrivateKey { return c.key }

// Taxpayer returns the registering taxpayer's DIČ.
func (c *Config) Taxpayer() types.TaxpayerID { return c.taxpayer }

// Delegating returns the delegating taxpayer's DIČ; zero when unset.
func (c *Config) Delegating() types.TaxpayerID { return c.delegating }

// Premises returns the configured premises id.
func (c *Config) Premises() types.PremisesID { return c.premises }

// Register returns the configured register id.
func (c *Config) Register() types.RegisterID { return c.register }

// Mode returns the environment derived from the certificate issuer.
func (c *Config) Mode() types.Mode { return c.mode }
