// Package database provides shared test helpers for provisioning a
// pgstore.Client against an isolated schema, so package tests don't each
// repeat the testcontainer/schema bookkeeping in test/util.
package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/tarsy/pkg/policy/pgstore"
	"github.com/codeready-toolchain/tarsy/test/util"
)

// NewTestClient provisions a fresh schema on the shared test database (see
// test/util.SetupTestSchema), applies pgstore's embedded migrations against
// it, and returns a ready *pgstore.Client. The schema — and the client's
// connection pool — are torn down via t.Cleanup.
func NewTestClient(t *testing.T) *pgstore.Client {
	t.Helper()
	ctx := context.Background()

	params := util.SetupTestSchema(t)

	client, err := pgstore.NewClientFromDSN(ctx, params.ConnString, params.SchemaName)
	require.NoError(t, err)

	t.Cleanup(client.Close)

	return client
}
