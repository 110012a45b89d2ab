// Package main generates a development Certificate Authority (CA) and a
// server certificate signed by it, writing them under the output directory.
package main

import (
	"crypto"
	"crypto/x509"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/atinyakov/gophlogin/internal/certgen"
)

func run(args []string, out io.Writer) error {
	fset := flag.NewFlagSet("certgen", flag.ContinueOnError)
	fset.SetOutput(out)
	dir := fset.String("dir", "certs", "output directory")
	hosts := fset.String("hosts", "localhost,127.0.0.1", "comma-separated server hosts")
	days := fset.Int("days", 365, "server certificate validity in days")
	caCertPath := fset.String("ca-cert", "", "existing CA certificate to sign with (requires -ca-key)")
	caKeyPath := fset.String("ca-key", "", "existing CA private key")
	if err := fset.Parse(args); err != nil {
		return err
	}

	var hostList []string
	for _, h := range strings.Split(*hosts, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hostList = append(hostList, h)
		}
	}

	if (*caCertPath == "") != (*caKeyPath == "") {
		return errors.New("-ca-cert and -ca-key must be given together")
	}

	// 1. Reuse the CA the clients already trust, or mint a new one
	var (
		caCert *x509.Certificate
		caKey  crypto.Signer
		err    error
	)
	if *caCertPath != "" {
		caCert, caKey, err = certgen.LoadCA(*caCertPath, *caKeyPath)
		if err != nil {
			return err
		}
	} else {
		var caBundle certgen.Bundle
		caBundle, caCert, caKey, err = certgen.GenerateCA("gophlogin dev CA", 10*365*24*time.Hour)
		if err != nil {
			return err
		}
		if err := certgen.WriteBundle(*dir, "ca", caBundle); err != nil {
			return err
		}
	}

	// 2. Generate server certificate/key signed by CA
	serverBundle, err := certgen.GenerateServerCertificate(hostList, time.Duration(*days)*24*time.Hour, caCert, caKey)
	if err != nil {
		return err
	}
	if err := certgen.WriteBundle(*dir, "server", serverBundle); err != nil {
		return err
	}

	fmt.Fprintf(out, "Certificates generated into %s\n", *dir)
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "certgen:", err)
		os.Exit(1)
	}
}
