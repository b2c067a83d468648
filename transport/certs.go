package transport

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"time"
)

// ExpiryWarningDays is how close to expiry a certificate gets flagged.
const ExpiryWarningDays = 30

// CertificateInfo holds the parsed metadata of a PEM certificate.
type CertificateInfo struct {
	Path            string
	Subject         string
	Issuer          string
	ValidFrom       time.Time
	ValidUntil      time.Time
	DaysUntilExpiry int
	IsExpired       bool
	ExpiryWarning   bool
}

// InspectCertificate reads the first certificate of a PEM file.
func InspectCertificate(path string, now time.Time) (*CertificateInfo, error) {
	certPEM, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate: %w", err)
	}

	// for a chain this is the leaf
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block in %s", path)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate %s: %w", path, err)
	}

	days := int(cert.NotAfter.Sub(now).Hours() / 24)
	expired := now.After(cert.NotAfter)
	return &CertificateInfo{
		Path:            path,
		Subject:         cert.Subject.String(),
		Issuer:          cert.Issuer.String(),
		ValidFrom:       cert.NotBefore,
		ValidUntil:      cert.NotAfter,
		DaysUntilExpiry: days,
		IsExpired:       expired,
		ExpiryWarning:   days <= ExpiryWarningDays && !expired,
	}, nil
}
