package envelope

// Namespaces and algorithm identifiers fixed by the EET v3 protocol and the
// WS-Security / XML-DSig specifications. These are interoperability
// constants; any deviation breaks verification on the authority's side.
const (
	NamespaceSOAP = "http://schemas.xmlsoap.org/soap/envelope/"
	NamespaceEET  = "http://fs.mfcr.cz/eet/schema/v3"
	NamespaceWSSE = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"
	NamespaceWSU  = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-utility-1.0.xsd"
	NamespaceDS   = "http://www.w3.org/2000/09/xmldsig#"

	AlgorithmExcC14N   = "http://www.w3.org/2001/10/xml-exc-c14n#"
	AlgorithmRSASHA256 = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	AlgorithmSHA256    = "http://www.w3.org/2001/04/xmlenc#sha256"

	TokenValueTypeX509v3 = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-x509-token-profile-1.0#X509v3"
	TokenEncodingBase64  = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-soap-message-security-1.0#Base64Binary"
)

// AuthorityLegalName is the organization name carried by the signing
// certificates of the Financial Administration's registration gateway.
const AuthorityLegalName = "Česká republika - Generální finanční ředitelství"
