package adapters

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// Namespaces used by the BIR public registry contract.
const (
	NamespaceSOAP12     = "http://www.w3.org/2003/05/soap-envelope"
	NamespaceAddressing = "http://www.w3.org/2005/08/addressing"
	NamespaceBIRPubl    = "http://CIS/BIR/PUBL/2014/07"
	NamespaceBIRData    = "http://CIS/BIR/PUBL/2014/07/DataContract"
	NamespaceBIR        = "http://CIS/BIR/2014/07"
)

// envelopeTemplate is the fixed SOAP 1.2 envelope with WS-Addressing headers.
// The "ns" and "dat" prefixes are declared for body fragments to use.
const envelopeTemplate = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="` + NamespaceSOAP12 + `"
               xmlns:ns="` + NamespaceBIRPubl + `"
               xmlns:dat="` + NamespaceBIRData + `">
    <soap:Header xmlns:wsa="` + NamespaceAddressing + `">
        <wsa:To>%s</wsa:To>
        <wsa:Action>%s</wsa:Action>
    </soap:Header>
    <soap:Body>
        %s
    </soap:Body>
</soap:Envelope>`

// Envelope wraps a body fragment in the SOAP envelope addressed to endpoint.
// The endpoint and action are escaped; the body fragment is inserted verbatim
// and must be built with Escape around every interpolated value.
func Envelope(endpoint, action, body string) []byte {
	return []byte(fmt.Sprintf(envelopeTemplate, Escape(endpoint), Escape(action), body))
}

// Escape returns s with XML special characters replaced by entities.
func Escape(s string) string {
	var buf bytes.Buffer
	// EscapeText only fails when the writer fails; bytes.Buffer never does.
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
