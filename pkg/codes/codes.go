package codes

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/openfiscal/go-eet/pkg/types"
)

// Fields are the six sale fields that feed the fiscal codes, in the fixed
// order mandated by the protocol.
type Fields struct {
	Taxpayer TaxpayerField
	Premises types.PremisesID
	Register types.RegisterID
	Receipt  types.ReceiptSeq
	SaleTime types.Timestamp
	Total    types.Amount
}

// TaxpayerField aliases the taxpayer id so callers cannot accidentally swap
// it with the delegating taxpayer id, which never participates in the codes.
type TaxpayerField = types.TaxpayerID

// SignText joins the six canonical field renderings with "|". This exact
// UTF-8 string is the input to the PKP signature; the field order and
// separator are fixed by the protocol and must not change.
func SignText(f Fields) string {
	return strings.Join([]string{
		f.Taxpayer.String(),
		f.Premises.String(),
		f.Register.String(),
		f.Receipt.String(),
		f.SaleTime.String(),
		f.Total.String(),
	}, "|")
}

// Compute derives PKP and BKP from the sale fields and the operator's key.
// PKP is the base64 RSASSA-PKCS1-v1_5/SHA-256 signature of the signed text;
// BKP is the SHA-1 digest of the raw signature bytes, uppercased and
// regrouped into five hyphenated 8-character segments. Recomputing with the
// same inputs reproduces byte-identical codes.
func Compute(key *rsa.PrivateKey, f Fields) (types.PKP, types.BKP, error) {
	if key == nil {
		return types.PKP{}, types.BKP{}, fmt.Errorf("private key is required")
	}

	sum := sha256.Sum256([]byte(SignText(f)))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, sum[:])
	if err != nil {
		return types.PKP{}, types.BKP{}, fmt.Errorf("pkp signature failed: %w", err)
	}

	pkp, err := types.NewPKP(base64.StdEncoding.EncodeToString(sig))
	if err != nil {
		return types.PKP{}, types.BKP{}, fmt.Errorf("pkp encoding: %w", err)
	}

	bkp, err := types.NewBKP(FormatBKP(sig))
	if err != nil {
		return types.PKP{}, types.BKP{}, fmt.Errorf("bkp encoding: %w", err)
	}

	return pkp, bkp, nil
}

// FormatBKP formats the raw PKP signature bytes as the receipt-printable
// BKP: SHA-1, hex, uppercase, grouped 8-8-8-8-8 with hyphens.
func FormatBKP(signature []byte) string {
	digest := sha1.Sum(signature)
	h := strings.ToUpper(hex.EncodeToString(digest[:]))
	return strings.Join([]string{h[0:8], h[8:16], h[16:24], h[24:32], h[32:40]}, "-")
}
