package adapters

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Fault is a SOAP 1.2 fault returned in place of a result.
type Fault struct {
	Code   string
	Reason string
}

func (f *Fault) Error() string {
	if f.Code == "" {
		return "soap fault: " + f.Reason
	}
	return fmt.Sprintf("soap fault %s: %s", f.Code, f.Reason)
}

type soapFault struct {
	Code struct {
		Value string `xml:"Value"`
	} `xml:"Code"`
	Reason struct {
		Text []string `xml:"Text"`
	} `xml:"Reason"`
}

// ResultText scans an envelope for the first element with the given local name
// and returns its character data with entities decoded. BIR results carry an
// escaped XML document as text, so the returned string is itself XML.
//
// A missing element yields an empty string. A SOAP fault yields *Fault.
func ResultText(envelope []byte, element string) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(envelope))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("parse soap envelope: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "Fault":
			return "", decodeFault(dec, start)
		case element:
			return collectText(dec)
		}
	}
}

func decodeFault(dec *xml.Decoder, start xml.StartElement) error {
	var f soapFault
	if err := dec.DecodeElement(&f, &start); err != nil {
		return fmt.Errorf("parse soap fault: %w", err)
	}
	return &Fault{
		Code:   strings.TrimSpace(f.Code.Value),
		Reason: strings.TrimSpace(strings.Join(f.Reason.Text, "; ")),
	}
}

// collectText concatenates character data until the current element closes.
func collectText(dec *xml.Decoder) (string, error) {
	var b strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("parse soap result: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			b.Write(t)
		}
	}
	return b.String(), nil
}
