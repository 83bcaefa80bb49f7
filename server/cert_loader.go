package server

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// certCheckInterval limits how often the certificate files are stat'ed.
const certCheckInterval = time.Minute

// CertLoader serves a TLS certificate pair and picks up replacements on disk
// without a restart.
type CertLoader struct {
	certFile string
	keyFile  string
	logger   *slog.Logger
	interval time.Duration

	mu        sync.Mutex
	cert      *tls.Certificate
	loadedAt  time.Time
	lastCheck time.Time
}

// NewCertLoader loads the pair once and fails if it cannot be read.
func NewCertLoader(certFile, keyFile string, logger *slog.Logger) (*CertLoader, error) {
	l := &CertLoader{
		certFile: certFile,
		keyFile:  keyFile,
		logger:   logger,
		interval: certCheckInterval,
	}
	if err := l.reload(); err != nil {
		return nil, err
	}
	l.lastCheck = time.Now()
	return l, nil
}

// GetCertificate is a callback for tls.Config.GetCertificate.
// Errors while checking for a newer pair keep the current one in service.
func (l *CertLoader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Since(l.lastCheck) < l.interval {
		return l.cert, nil
	}
	l.lastCheck = time.Now()

	changed, err := l.changed()
	if err != nil {
		l.logger.Error("failed to check tls certificate", "error", err)
		return l.cert, nil
	}
	if changed {
		if err := l.reload(); err != nil {
			l.logger.Error("failed to reload tls certificate", "error", err)
		}
	}
	return l.cert, nil
}

func (l *CertLoader) changed() (bool, error) {
	for _, name := range []string{l.certFile, l.keyFile} {
		st, err := os.Stat(name)
		if err != nil {
			return false, err
		}
		if st.ModTime().After(l.loadedAt) {
			return true, nil
		}
	}
	return false, nil
}

func (l *CertLoader) reload() error {
	cert, err := tls.LoadX509KeyPair(l.certFile, l.keyFile)
	if err != nil {
		return fmt.Errorf("loading key pair: %w", err)
	}
	l.cert = &cert
	l.loadedAt = time.Now()
	l.logger.Info("loaded tls certificate", "cert", l.certFile, "key", l.keyFile)
	return nil
}
