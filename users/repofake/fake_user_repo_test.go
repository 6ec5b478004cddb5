package fakeuserrepo_test

import (
	"testing"

	"github.com/jrsteele09/go-session-lifecycle/users"
	fakeuserrepo "github.com/jrsteele09/go-session-lifecycle/users/repofake"
	"github.com/stretchr/testify/require"
)

func TestFakeUserRepo(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()

	require.NoError(t, repo.Upsert(&users.User{Username: "bob", Role: users.RoleEmployee}))
	require.NoError(t, repo.Upsert(&users.User{Username: "ann", Role: users.RoleAdmin}))
	require.Error(t, repo.Upsert(&users.User{}))

	bob, err := repo.GetByUsername("bob")
	require.NoError(t, err)
	require.NotEmpty(t, bob.ID)

	byID, err := repo.GetByID(bob.ID)
	require.NoError(t, err)
	require.Equal(t, users.RoleEmployee, byID.Role)

	list, err := repo.List(0, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "ann", list[0].Username)

	list, err = repo.List(1, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "bob", list[0].Username)

	require.NoError(t, repo.Delete("bob"))
	_, err = repo.GetByUsername("bob")
	require.Error(t, err)
	require.Error(t, repo.Delete("bob"))
}
