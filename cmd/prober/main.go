/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"

	"github.com/chainguard-dev/terraform-infra-common/pkg/prober"

	orgprober "github.com/chainguard-dev/github-org-settings/pkg/prober"
)

func main() {
	ctx := context.Background()
	prober.Go(ctx, prober.Func(orgprober.Func))
}
