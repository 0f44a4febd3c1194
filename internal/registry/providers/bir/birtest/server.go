// Package birtest provides a fake BIR registry endpoint for tests.
//
// The server dispatches on the SOAPAction header and answers the way the real
// service does: a SOAP 1.2 envelope whose result element holds an escaped XML
// document, wrapped in an MTOM multipart/related body by default.
package birtest

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const (
	mtomBoundary = "uuid:5b6f8c2e-1c4e-4a0b-9f6d-3a2e7c9d1b00+id=1"
	mtomStart    = "<http://tempuri.org/0>"

	namespacePubl = "http://CIS/BIR/PUBL/2014/07"
	namespaceBIR  = "http://CIS/BIR/2014/07"
)

// Sample identifiers used by the default fixtures.
const (
	SampleNIP       = "5261040828"
	SampleRegon     = "000331501"
	SampleSessionID = "1a2b3c4d5e6f7g8h9i0j"
)

// Request is one call received by the fake.
type Request struct {
	Operation string
	Action    string
	SessionID string
	Body      string
}

// Response configures the fake's answer for one operation.
type Response struct {
	Status int    // HTTP status, 200 when zero
	Result string // text placed (escaped) inside <OpResult>
	Fault  string // when non-empty a SOAP fault with this reason is returned instead
}

// Server is a fake BIR endpoint backed by httptest.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	responses map[string]Response
	values    map[string]string
	plain     bool
	requests  []Request
}

// NewServer starts a fake registry that answers every operation successfully
// with the sample legal entity. It is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		responses: map[string]Response{
			"Zaloguj":                {Result: SampleSessionID},
			"DaneSzukajPodmioty":     {Result: SampleSearchResult(SampleRegon, "P")},
			"DanePobierzPelnyRaport": {Result: SamplePKDReport},
			"Wyloguj":                {Result: "true"},
		},
		values: map[string]string{
			"StatusUslugi": "1",
			"KomunikatKod": "",
		},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Respond overrides the answer for an operation (e.g. "Zaloguj").
func (s *Server) Respond(operation string, r Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[operation] = r
}

// SetValue sets the value returned by GetValue for a parameter.
func (s *Server) SetValue(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = value
}

// UsePlainSOAP switches responses from MTOM to a bare application/soap+xml body.
func (s *Server) UsePlainSOAP() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plain = true
}

// Requests returns a copy of every call received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Calls counts the calls received for an operation.
func (s *Server) Calls(operation string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Operation == operation {
			n++
		}
	}
	return n
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	action := r.Header.Get("SOAPAction")
	operation := action[strings.LastIndex(action, "/")+1:]

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Operation: operation,
		Action:    action,
		SessionID: r.Header.Get("sid"),
		Body:      string(body),
	})
	resp, ok := s.responses[operation]
	if operation == "GetValue" {
		resp, ok = Response{Result: s.values[parameterName(body)]}, true
	}
	plain := s.plain
	s.mu.Unlock()

	if !ok {
		http.Error(w, "unknown action "+action, http.StatusBadRequest)
		return
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}

	var envelope string
	if resp.Fault != "" {
		envelope = FaultEnvelope(resp.Fault)
	} else {
		envelope = ResultEnvelope(operation, resp.Result)
	}

	if plain {
		w.Header().Set("Content-Type", "application/soap+xml; charset=utf-8")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, envelope)
		return
	}
	w.Header().Set("Content-Type", fmt.Sprintf(
		`multipart/related; type="application/xop+xml"; start=%q; boundary=%q; start-info="application/soap+xml"`,
		mtomStart, mtomBoundary,
	))
	w.WriteHeader(status)
	_, _ = io.WriteString(w, MTOM(envelope))
}

// parameterName pulls pNazwaParametru out of a GetValue request.
func parameterName(body []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		if start, ok := tok.(xml.StartElement); ok && start.Name.Local == "pNazwaParametru" {
			var name string
			if dec.DecodeElement(&name, &start) != nil {
				return ""
			}
			return strings.TrimSpace(name)
		}
	}
}

// ResultEnvelope renders a successful reply for an operation.
func ResultEnvelope(operation, result string) string {
	ns := namespacePubl
	if operation == "GetValue" {
		ns = namespaceBIR
	}
	var escaped bytes.Buffer
	_ = xml.EscapeText(&escaped, []byte(result))
	return `<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope" xmlns:a="http://www.w3.org/2005/08/addressing">` +
		`<s:Header><a:Action s:mustUnderstand="1">` + operation + `Response</a:Action></s:Header>` +
		`<s:Body><` + operation + `Response xmlns="` + ns + `"><` + operation + `Result>` + escaped.String() +
		`</` + operation + `Result></` + operation + `Response></s:Body></s:Envelope>`
}

// FaultEnvelope renders a SOAP 1.2 fault.
func FaultEnvelope(reason string) string {
	var escaped bytes.Buffer
	_ = xml.EscapeText(&escaped, []byte(reason))
	return `<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"><s:Body><s:Fault>` +
		`<s:Code><s:Value>s:Receiver</s:Value></s:Code>` +
		`<s:Reason><s:Text xml:lang="pl-PL">` + escaped.String() + `</s:Text></s:Reason>` +
		`</s:Fault></s:Body></s:Envelope>`
}

// MTOM wraps an envelope in the multipart/related body the registry sends.
func MTOM(envelope string) string {
	return "--" + mtomBoundary + "\r\n" +
		"Content-ID: " + mtomStart + "\r\n" +
		"Content-Transfer-Encoding: 8bit\r\n" +
		"Content-Type: application/xop+xml;charset=utf-8;type=\"application/soap+xml\"\r\n\r\n" +
		envelope + "\r\n" +
		"--" + mtomBoundary + "--\r\n"
}

// SampleSearchResult is a DaneSzukajPodmioty result for one entity.
// An empty regon omits the Regon element.
func SampleSearchResult(regon, entityType string) string {
	var b strings.Builder
	b.WriteString("<root>\r\n  <dane>\r\n")
	if regon != "" {
		b.WriteString("    <Regon>" + regon + "</Regon>\r\n")
	}
	b.WriteString("    <Nip>" + SampleNIP + "</Nip>\r\n" +
		"    <StatusNip />\r\n" +
		"    <Nazwa>GŁÓWNY URZĄD STATYSTYCZNY</Nazwa>\r\n" +
		"    <Wojewodztwo>MAZOWIECKIE</Wojewodztwo>\r\n" +
		"    <Powiat>m. st. Warszawa</Powiat>\r\n" +
		"    <Gmina>Śródmieście</Gmina>\r\n" +
		"    <Miejscowosc>Warszawa</Miejscowosc>\r\n" +
		"    <KodPocztowy>00-925</KodPocztowy>\r\n" +
		"    <Ulica>ul. Test-Krucza</Ulica>\r\n" +
		"    <NrNieruchomosci>208</NrNieruchomosci>\r\n" +
		"    <NrLokalu />\r\n" +
		"    <Typ>" + entityType + "</Typ>\r\n" +
		"    <SilosID>6</SilosID>\r\n" +
		"    <DataZakonczeniaDzialalnosci />\r\n" +
		"    <MiejscowoscPoczty>Warszawa</MiejscowoscPoczty>\r\n" +
		"  </dane>\r\n</root>")
	return b.String()
}

// SamplePKDReport is a full report listing two activity codes.
const SamplePKDReport = `<root xmlns="http://CIS/BIR/PUBL/2014/07">
  <dane>
    <praw_pkdKod>8411Z</praw_pkdKod>
    <praw_pkdNazwa>KIEROWANIE PODSTAWOWYMI RODZAJAMI DZIAŁALNOŚCI PUBLICZNEJ</praw_pkdNazwa>
    <praw_pkdPrzewazajace>1</praw_pkdPrzewazajace>
  </dane>
  <dane>
    <praw_pkdKod>6311Z</praw_pkdKod>
    <praw_pkdNazwa>PRZETWARZANIE DANYCH; ZARZĄDZANIE STRONAMI INTERNETOWYMI (HOSTING) I PODOBNA DZIAŁALNOŚĆ</praw_pkdNazwa>
    <praw_pkdPrzewazajace>0</praw_pkdPrzewazajace>
  </dane>
</root>`
