// Copyright (C) 2026 Caldera Simulations (sims@caldera-sim.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package forest

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// forEachTree runs fn once per tree on a worker pool bounded by the builder's
// worker count. Trees share no mutable state, so fn needs no locking as long
// as it only touches its own tree; each tree's internal snapshot order is
// preserved because a single worker runs the whole tree.
//
// The first error cancels the remaining work and is returned.
func (b *TreeBuilder) forEachTree(ctx context.Context, trees []*MergerTree, fn func(*MergerTree) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for _, tree := range trees {
		tree := tree
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(tree)
		})
	}
	return g.Wait()
}
