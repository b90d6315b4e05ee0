// Copyright 2026 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:generate go run . -o ../../policies
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"github.com/chainguard-dev/github-org-settings/pkg/policy"
)

var outputFlag = flag.String("o", "", "output directory")

func main() {
	flag.Parse()

	if *outputFlag == "" {
		log.Fatal("output path is required")
	}

	r := new(jsonschema.Reflector)
	if err := r.AddGoComments("github.com/chainguard-dev/github-org-settings/pkg/policy", "../../pkg/policy"); err != nil {
		log.Fatal(err)
	}

	for _, t := range []any{
		policy.AccessPolicy{},
		policy.VisibilityPolicy{},
	} {
		path := filepath.Join(*outputFlag, fmt.Sprintf("%T.schema.json", t))
		out, err := os.Create(path)
		if err != nil {
			log.Fatal(err)
		}
		defer out.Close()

		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		if err := enc.Encode(r.Reflect(t)); err != nil {
			// nolint:gocritic
			log.Fatal(err)
		}
	}
}
