package tlsutil

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"software.sslmate.com/src/go-pkcs12"
)

// LoadP12 reads a pkcs12 bundle with a client key, its certificate and
// optional CA certificates.
func LoadP12(name, password string) (*tls.Certificate, []*x509.Certificate, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, nil, err
	}

	key, cert, ca, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return nil, nil, fmt.Errorf("error decoding %s: %w", name, err)
	}

	tlsCert := &tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  key,
		Leaf:        cert,
	}

	for _, c := range ca {
		tlsCert.Certificate = append(tlsCert.Certificate, c.Raw)
	}

	return tlsCert, ca, nil
}

// ClientConfig makes a tls config for the api client. An empty p12 name
// gives the system roots; strict=false skips server verification.
func ClientConfig(p12, password string, strict bool) (*tls.Config, error) {
	conf := &tls.Config{InsecureSkipVerify: !strict} //nolint:gosec

	if p12 == "" {
		return conf, nil
	}

	cert, ca, err := LoadP12(p12, password)
	if err != nil {
		return nil, err
	}

	conf.Certificates = []tls.Certificate{*cert}

	if len(ca) > 0 {
		conf.RootCAs = MakeCertPool(ca...)
	}

	return conf, nil
}

func CertToPem(cert *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
}

func DecodeAllCerts(bytes []byte) ([]*x509.Certificate, error) {
	var res []*x509.Certificate

	for len(bytes) > 0 {
		var block *pem.Block

		block, bytes = pem.Decode(bytes)
		if block == nil {
			break
		}

		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}

		res = append(res, cert)
	}

	return res, nil
}

func MakeCertPool(certs ...*x509.Certificate) *x509.CertPool {
	cp := x509.NewCertPool()
	for _, c := range certs {
		if c != nil {
			cp.AddCert(c)
		}
	}

	return cp
}
