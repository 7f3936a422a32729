// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Openbadge bakes Open Badges assertions into PNG images, extracts
// them again, and serves both operations over HTTP.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/andyparkerson/openbadge/badge"
	"github.com/andyparkerson/openbadge/bake"
	"github.com/andyparkerson/openbadge/log"
	"github.com/andyparkerson/openbadge/must"
	"github.com/andyparkerson/openbadge/store"
	"github.com/andyparkerson/openbadge/web"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: openbadge <command> [flags]

Commands:
	bake     bake an assertion into a badge image
	extract  print the assertion baked into a badge image
	serve    run the badge baking HTTP service

Run openbadge <command> -help for command flags.
`)
	os.Exit(2)
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("openbadge: ")
	log.AddFlags()
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
	}
	args := flag.Args()[1:]
	switch flag.Arg(0) {
	case "bake":
		runBake(args)
	case "extract":
		runExtract(args)
	case "serve":
		runServe(args)
	default:
		usage()
	}
}

func runBake(args []string) {
	var (
		flags     = flag.NewFlagSet("bake", flag.ExitOnError)
		in        = flags.String("in", "", "source badge image")
		out       = flags.String("out", "", "destination for the baked image")
		assertion = flags.String("assertion", "", "file holding the assertion JSON")
		salt      = flags.String("salt", "", "salt for hashing the recipient identity; empty leaves it as is")
		replace   = flags.Bool("replace", false, "replace an existing baked assertion instead of inserting alongside it")
	)
	flags.Parse(args)
	if *in == "" || *out == "" || *assertion == "" {
		flags.Usage()
		os.Exit(2)
	}
	img, err := os.ReadFile(*in)
	must.Nilf(err, "reading %s", *in)
	doc, err := os.ReadFile(*assertion)
	must.Nilf(err, "reading %s", *assertion)
	a, err := badge.Decode(doc)
	must.Nil(err, "decoding assertion")
	if *salt != "" {
		a.Recipient.Hash(*salt)
	}
	payload, err := a.Encode()
	must.Nil(err)
	baked, err := bake.Opts{ReplaceExisting: *replace}.Embed(img, string(payload))
	must.Nilf(err, "baking %s", *in)
	must.Nilf(os.WriteFile(*out, baked, 0644), "writing %s", *out)
	log.Printf("baked %s into %s", *assertion, *out)
}

func runExtract(args []string) {
	var (
		flags = flag.NewFlagSet("extract", flag.ExitOnError)
		in    = flags.String("in", "", "baked badge image")
	)
	flags.Parse(args)
	if *in == "" {
		flags.Usage()
		os.Exit(2)
	}
	img, err := os.ReadFile(*in)
	must.Nilf(err, "reading %s", *in)
	payload, ok, err := bake.Extract(img)
	must.Nilf(err, "extracting from %s", *in)
	if !ok {
		log.Fatalf("%s carries no badge assertion", *in)
	}
	fmt.Println(payload)
}

func runServe(args []string) {
	var (
		flags  = flag.NewFlagSet("serve", flag.ExitOnError)
		addr   = flags.String("addr", ":8080", "address to listen on")
		bucket = flags.String("bucket", "", "S3 bucket for persisting baked badges; empty disables persistence")
		salt   = flags.String("salt", "", "salt for hashing recipient identities in uploads")
		verify = flags.Bool("verify", false, "verify chunk checksums of uploaded images")
	)
	flags.Parse(args)
	srv := &web.Server{
		Opts: bake.Opts{VerifyChecksums: *verify},
		Salt: *salt,
	}
	if *bucket != "" {
		sess := session.Must(session.NewSession())
		srv.Store = store.New(s3.New(sess), *bucket)
	}
	log.Printf("listening on %s", *addr)
	must.Nil(http.ListenAndServe(*addr, srv.Handler()))
}
