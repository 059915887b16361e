package service_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/contenthub/internal/model"
	"github.com/iliyamo/contenthub/internal/repository"
	"github.com/iliyamo/contenthub/internal/service"
)

func TestUserDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	root := e.admin(t, "root")
	_, alice := e.register(t, "alice")

	t.Run("last admin", func(t *testing.T) {
		// an admin token whose user has since been removed from the admin set
		stale := service.Actor{UserID: "stale-admin", Role: model.RoleAdmin}
		requireCode(t, e.users.Delete(ctx, root.UserID, stale), service.CodeConflict)
	})

	t.Run("not admin", func(t *testing.T) {
		requireCode(t, e.users.Delete(ctx, root.UserID, alice), service.CodeForbidden)
		requireCode(t, e.users.Delete(ctx, root.UserID, service.Actor{}), service.CodeUnauthorized)
	})

	t.Run("self", func(t *testing.T) {
		err := e.users.Delete(ctx, root.UserID, root)
		requireCode(t, err, service.CodeValidation)
		assert.Equal(t, []string{"id"}, service.FieldNames(err))
	})

	t.Run("missing", func(t *testing.T) {
		requireCode(t, e.users.Delete(ctx, "missing", root), service.CodeNotFound)
	})

	t.Run("cascades tokens", func(t *testing.T) {
		n, err := e.store.Tokens.CountForUser(ctx, alice.UserID)
		require.NoError(t, err)
		require.EqualValues(t, 1, n)

		require.NoError(t, e.users.Delete(ctx, alice.UserID, root))

		n, err = e.store.Tokens.CountForUser(ctx, alice.UserID)
		require.NoError(t, err)
		assert.Zero(t, n)
		_, err = e.users.Get(ctx, alice.UserID)
		requireCode(t, err, service.CodeNotFound)
	})

	t.Run("second admin", func(t *testing.T) {
		other := e.admin(t, "other")
		require.NoError(t, e.users.Delete(ctx, root.UserID, other))
	})
}

func TestUserList(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	root := e.admin(t, "root")
	_, alice := e.register(t, "alice")

	_, _, err := e.users.List(ctx, alice, repository.Page{})
	requireCode(t, err, service.CodeForbidden)

	users, total, err := e.users.List(ctx, root, repository.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, users, 2)
}

func TestUserUpdate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, alice := e.register(t, "alice")
	_, bob := e.register(t, "bob")

	u, err := e.users.Update(ctx, alice.UserID, service.UpdateUserInput{Username: ptr("alicia")}, alice)
	require.NoError(t, err)
	assert.Equal(t, "alicia", u.Username)

	_, err = e.users.Update(ctx, alice.UserID, service.UpdateUserInput{Email: ptr("BOB@example.com")}, alice)
	requireCode(t, err, service.CodeConflict)

	_, err = e.users.Update(ctx, alice.UserID, service.UpdateUserInput{Username: ptr("mallory")}, bob)
	requireCode(t, err, service.CodeForbidden)

	_, err = e.users.Update(ctx, alice.UserID, service.UpdateUserInput{Email: ptr("broken")}, alice)
	requireCode(t, err, service.CodeValidation)
}

func TestUserAvatar(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, alice := e.register(t, "alice")
	_, bob := e.register(t, "bob")

	up := func(name, body string) service.Upload {
		return service.Upload{FileName: name, ContentType: "image/png", Size: int64(len(body)), Body: strings.NewReader(body)}
	}

	_, err := e.users.UploadAvatar(ctx, alice.UserID, up("a.png", "first"), bob)
	requireCode(t, err, service.CodeForbidden)

	_, err = e.users.UploadAvatar(ctx, alice.UserID, up("a.exe", "nope"), alice)
	requireCode(t, err, service.CodeValidation)

	_, err = e.users.UploadAvatar(ctx, alice.UserID, up("a.png", "first"), alice)
	require.NoError(t, err)
	u, err := e.users.UploadAvatar(ctx, alice.UserID, up("b.png", "second"), alice)
	require.NoError(t, err)
	require.NotNil(t, u.AvatarID)
	assert.Equal(t, 1, e.blobs.Len())

	obj, err := e.users.Avatar(ctx, alice.UserID)
	require.NoError(t, err)
	defer obj.Body.Close()
	data, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
	assert.Equal(t, "b.png", obj.FileName)

	_, err = e.users.Avatar(ctx, bob.UserID)
	requireCode(t, err, service.CodeNotFound)
}
