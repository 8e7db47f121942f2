// Package main generates a development Certificate Authority (CA) and a
// server certificate signed by it, writing them under the "certs" directory.
// Point TLS_CERT_FILE/TLS_KEY_FILE at the server pair and pass ca.crt to the
// client with -ca.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/atinyakov/GophContacts/internal/certgen"
)

func main() {
	dir := flag.String("dir", "certs", "output directory")
	hosts := flag.String("hosts", "localhost,127.0.0.1", "comma-separated server host names and IPs")
	flag.Parse()

	if err := run(*dir, splitHosts(*hosts)); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("✅ Certificates generated into ./%s\n", *dir)
}

func splitHosts(s string) []string {
	var hosts []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

// run reuses an existing CA in dir, creating one if absent, and issues a
// fresh server certificate for hosts.
func run(dir string, hosts []string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	caCertPath, caKeyPath := filepath.Join(dir, "ca.crt"), filepath.Join(dir, "ca.key")

	if _, err := os.Stat(caCertPath); errors.Is(err, os.ErrNotExist) {
		certPEM, keyPEM, err := certgen.NewCA("Contacts Dev CA")
		if err != nil {
			return err
		}
		if err := writePair(caCertPath, caKeyPath, certPEM, keyPEM); err != nil {
			return err
		}
	}

	caCert, caKey, err := certgen.LoadCACredentials(caCertPath, caKeyPath)
	if err != nil {
		return err
	}
	certPEM, keyPEM, err := certgen.GenerateServerCertificate(hosts, caCert, caKey)
	if err != nil {
		return err
	}
	return writePair(filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key"), certPEM, keyPEM)
}

// writePair writes the certificate world-readable and the key owner-only.
func writePair(certPath, keyPath string, certPEM, keyPEM []byte) error {
	if err := os.WriteFile(certPath, certPEM, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", certPath, err)
	}
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", keyPath, err)
	}
	return nil
}
