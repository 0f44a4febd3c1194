package adapters

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultText(t *testing.T) {
	t.Run("returns text of the named element", func(t *testing.T) {
		text, err := ResultText([]byte(sampleEnvelope), "ZalogujResult")
		require.NoError(t, err)
		assert.Equal(t, "sid-123", text)
	})

	t.Run("decodes escaped inner XML", func(t *testing.T) {
		env := `<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"><s:Body>` +
			`<DaneSzukajPodmiotyResponse xmlns="http://CIS/BIR/PUBL/2014/07"><DaneSzukajPodmiotyResult>` +
			`&lt;root&gt;&lt;dane&gt;&lt;Regon&gt;000331501&lt;/Regon&gt;&lt;/dane&gt;&lt;/root&gt;` +
			`</DaneSzukajPodmiotyResult></DaneSzukajPodmiotyResponse></s:Body></s:Envelope>`
		text, err := ResultText([]byte(env), "DaneSzukajPodmiotyResult")
		require.NoError(t, err)
		assert.Equal(t, "<root><dane><Regon>000331501</Regon></dane></root>", text)
	})

	t.Run("missing element yields empty text", func(t *testing.T) {
		text, err := ResultText([]byte(sampleEnvelope), "DanePobierzPelnyRaportResult")
		require.NoError(t, err)
		assert.Empty(t, text)
	})

	t.Run("empty element yields empty text", func(t *testing.T) {
		env := `<Envelope><Body><ZalogujResponse><ZalogujResult/></ZalogujResponse></Body></Envelope>`
		text, err := ResultText([]byte(env), "ZalogujResult")
		require.NoError(t, err)
		assert.Empty(t, text)
	})

	t.Run("soap fault is returned as *Fault", func(t *testing.T) {
		env := `<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"><s:Body><s:Fault>` +
			`<s:Code><s:Value>s:Sender</s:Value></s:Code>` +
			`<s:Reason><s:Text xml:lang="pl-PL">The message could not be processed.</s:Text></s:Reason>` +
			`</s:Fault></s:Body></s:Envelope>`
		text, err := ResultText([]byte(env), "ZalogujResult")
		assert.Empty(t, text)

		var fault *Fault
		require.True(t, errors.As(err, &fault))
		assert.Equal(t, "s:Sender", fault.Code)
		assert.Equal(t, "The message could not be processed.", fault.Reason)
		assert.Equal(t, "soap fault s:Sender: The message could not be processed.", err.Error())
	})

	t.Run("malformed envelope is an error", func(t *testing.T) {
		_, err := ResultText([]byte(`<Envelope><Body><ZalogujResult>abc`), "ZalogujResult")
		assert.Error(t, err)
	})
}

func TestFault_ErrorWithoutCode(t *testing.T) {
	assert.Equal(t, "soap fault: boom", (&Fault{Reason: "boom"}).Error())
}
