package tlsutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"software.sslmate.com/src/go-pkcs12"
)

func makeCert(t *testing.T, cn string) (*ecdsa.PrivateKey, *x509.Certificate) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return key, cert
}

func TestLoadP12(t *testing.T) {
	key, cert := makeCert(t, "responder")
	_, ca := makeCert(t, "ca")

	data, err := pkcs12.Modern.Encode(key, cert, []*x509.Certificate{ca}, "pass")
	require.NoError(t, err)

	fn := filepath.Join(t.TempDir(), "client.p12")
	require.NoError(t, os.WriteFile(fn, data, 0o600))

	tlsCert, cas, err := LoadP12(fn, "pass")
	require.NoError(t, err)
	assert.Equal(t, "responder", tlsCert.Leaf.Subject.CommonName)
	assert.Len(t, tlsCert.Certificate, 2)
	require.Len(t, cas, 1)
	assert.Equal(t, "ca", cas[0].Subject.CommonName)

	_, _, err = LoadP12(fn, "wrong")
	assert.Error(t, err)

	conf, err := ClientConfig(fn, "pass", true)
	require.NoError(t, err)
	assert.False(t, conf.InsecureSkipVerify)
	assert.Len(t, conf.Certificates, 1)
	assert.NotNil(t, conf.RootCAs)

	conf, err = ClientConfig("", "", false)
	require.NoError(t, err)
	assert.True(t, conf.InsecureSkipVerify)
}

func TestDecodeAllCerts(t *testing.T) {
	_, c1 := makeCert(t, "one")
	_, c2 := makeCert(t, "two")

	data := append(CertToPem(c1), CertToPem(c2)...)

	certs, err := DecodeAllCerts(data)
	require.NoError(t, err)
	require.Len(t, certs, 2)
	assert.Equal(t, "two", certs[1].Subject.CommonName)
}
