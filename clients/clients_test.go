package clients_test

import (
	"testing"

	"github.com/jrsteele09/go-session-lifecycle/clients"
	fakeclientrepo "github.com/jrsteele09/go-session-lifecycle/clients/fakerepo"
	autherrors "github.com/jrsteele09/go-session-lifecycle/internal/errors"
	"github.com/jrsteele09/go-session-lifecycle/oauthmodel"
	"github.com/stretchr/testify/require"
)

func TestClient_Authenticate(t *testing.T) {
	confidential := &clients.Client{ID: "ui", Type: clients.ClientTypeConfidential, Secret: "s3cret"}
	require.True(t, confidential.Authenticate("s3cret"))
	require.False(t, confidential.Authenticate("wrong"))
	require.False(t, confidential.Authenticate(""))

	public := &clients.Client{ID: "cli", Type: clients.ClientTypePublic}
	require.True(t, public.Authenticate(""))
}

func TestClient_AllowsGrant(t *testing.T) {
	c := &clients.Client{GrantTypes: []oauthmodel.GrantType{oauthmodel.PasswordGrant}}
	require.True(t, c.AllowsGrant(oauthmodel.PasswordGrant))
	require.False(t, c.AllowsGrant(oauthmodel.RefreshTokenGrant))
}

func TestFakeClientRepo(t *testing.T) {
	repo := fakeclientrepo.NewFakeClientRepo()
	require.NoError(t, repo.Upsert(&clients.Client{ID: "b"}))
	require.NoError(t, repo.Upsert(&clients.Client{ID: "a"}))

	c, err := repo.Get("a")
	require.NoError(t, err)
	require.Equal(t, "a", c.ID)

	list, err := repo.List(0, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "a", list[0].ID)

	require.NoError(t, repo.Delete("a"))
	_, err = repo.Get("a")
	require.ErrorIs(t, err, autherrors.ErrNotFound)
	require.ErrorIs(t, repo.Delete("a"), autherrors.ErrNotFound)
}
