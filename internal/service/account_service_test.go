package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccounts(t *testing.T) (*AccountService, *AuthService, *fakeAccounts) {
	t.Helper()
	auth, store := newTestAuth(t)
	return NewAccountService(store, auth, nopLog), auth, store
}

func seedAccount(t *testing.T, store *fakeAccounts, roll string, role model.Role, approved bool) *model.Account {
	t.Helper()
	a := &model.Account{
		RollNumber: roll, Name: "User " + roll, PasswordHash: "x", Role: role,
		Department: "CSE", IsApproved: approved,
	}
	if role == model.RoleStudent {
		a.Section, a.Batch = "A", "2024"
	}
	require.NoError(t, store.Create(context.Background(), a))
	return a
}

func TestApprove(t *testing.T) {
	svc, _, store := newTestAccounts(t)
	ctx := context.Background()

	pending := seedAccount(t, store, "p1", model.RoleStudent, false)
	active := seedAccount(t, store, "a1", model.RoleStudent, true)

	n, err := svc.Approve(ctx, []uuid.UUID{pending.ID, active.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = svc.Approve(ctx, []uuid.UUID{pending.ID})
	require.NoError(t, err, "approving an approved account is a no-op")
	assert.EqualValues(t, 0, n)

	_, err = svc.Approve(ctx, []uuid.UUID{uuid.New()})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPendingAndActive(t *testing.T) {
	svc, _, store := newTestAccounts(t)
	ctx := context.Background()

	seedAccount(t, store, "p1", model.RoleStudent, false)
	seedAccount(t, store, "p2", model.RoleStaff, false)
	seedAccount(t, store, "a1", model.RoleStudent, true)

	pending, err := svc.ListPending(ctx, model.AccountFilter{})
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "p1", pending[0].RollNumber, "insertion order")

	staff, err := svc.ListPending(ctx, model.AccountFilter{Role: model.RoleStaff})
	require.NoError(t, err)
	require.Len(t, staff, 1)
	assert.Equal(t, "p2", staff[0].RollNumber)

	active, err := svc.ListActive(ctx, model.AccountFilter{Search: "A1"})
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestDelete_PartialFailure(t *testing.T) {
	svc, _, store := newTestAccounts(t)
	ctx := context.Background()

	admin := seedAccount(t, store, "admin", model.RoleAdmin, true)
	ok1 := seedAccount(t, store, "s1", model.RoleStudent, true)
	broken := seedAccount(t, store, "s2", model.RoleStudent, true)
	store.retErr[broken.ID] = errors.New("connection reset")
	missing := uuid.New()

	deleted, err := svc.Delete(ctx, admin.ID, []uuid.UUID{ok1.ID, broken.ID, missing, admin.ID})
	assert.Equal(t, []uuid.UUID{ok1.ID}, deleted)

	var be *BatchError
	require.True(t, errors.As(err, &be))
	require.Len(t, be.Failures, 3)
	assert.ErrorIs(t, be.Failures[missing], ErrNotFound)
	assert.ErrorIs(t, be.Failures[admin.ID], ErrForbidden)
	assert.False(t, be.AllNotFound())

	_, err = store.GetByID(ctx, ok1.ID)
	assert.Error(t, err, "successful deletion is not rolled back")

	retired, err := svc.ListRetired(ctx, model.AccountFilter{})
	require.NoError(t, err)
	require.Len(t, retired, 1)
	assert.Equal(t, ok1.ID, retired[0].AccountID)
}

func TestRestore(t *testing.T) {
	svc, auth, store := newTestAccounts(t)
	ctx := context.Background()

	a := seedAccount(t, store, "s1", model.RoleStudent, true)
	ra, err := store.Retire(ctx, a.ID)
	require.NoError(t, err)

	restored, err := svc.Restore(ctx, ra.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, restored.ID)
	assert.Equal(t, "2024", restored.Batch)
	assert.True(t, restored.IsApproved)
	assert.Error(t, auth.CheckPassword(restored.PasswordHash, "x"), "old password is not carried over")

	_, err = svc.Restore(ctx, ra.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRestore_RollNumberTaken(t *testing.T) {
	svc, _, store := newTestAccounts(t)
	ctx := context.Background()

	a := seedAccount(t, store, "s1", model.RoleStudent, true)
	ra, err := store.Retire(ctx, a.ID)
	require.NoError(t, err)
	seedAccount(t, store, "s1", model.RoleStudent, true)

	_, err = svc.Restore(ctx, ra.ID)
	assert.ErrorIs(t, err, ErrRollNumberTaken)

	retired, err := svc.ListRetired(ctx, model.AccountFilter{})
	require.NoError(t, err)
	assert.Len(t, retired, 1, "failed restore keeps the snapshot")
}

func TestPermanentDelete(t *testing.T) {
	svc, _, store := newTestAccounts(t)
	ctx := context.Background()

	a := seedAccount(t, store, "s1", model.RoleStudent, true)
	ra, err := store.Retire(ctx, a.ID)
	require.NoError(t, err)

	require.NoError(t, svc.PermanentDelete(ctx, ra.ID))
	assert.ErrorIs(t, svc.PermanentDelete(ctx, ra.ID), ErrNotFound)
}

func TestUpdatePassword(t *testing.T) {
	svc, auth, store := newTestAccounts(t)
	ctx := context.Background()

	a := seedAccount(t, store, "s1", model.RoleStudent, true)
	require.NoError(t, svc.UpdatePassword(ctx, a.ID, "new-secret"))

	got, err := store.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.NoError(t, auth.CheckPassword(got.PasswordHash, "new-secret"))

	assert.ErrorIs(t, svc.UpdatePassword(ctx, uuid.New(), "new-secret"), ErrNotFound)
}

func TestUpdateProfile(t *testing.T) {
	svc, auth, store := newTestAccounts(t)
	ctx := context.Background()

	student := seedAccount(t, store, "s1", model.RoleStudent, true)
	staff := seedAccount(t, store, "t1", model.RoleStaff, true)
	admin := seedAccount(t, store, "a1", model.RoleAdmin, true)
	seedAccount(t, store, "s2", model.RoleStudent, true)

	t.Run("claims change reissues token", func(t *testing.T) {
		resp, err := svc.UpdateProfile(ctx, student.ID, &model.UpdateProfileRequest{Batch: ptr("2025")})
		require.NoError(t, err)
		assert.Equal(t, "2025", resp.Account.Batch)
		require.NotEmpty(t, resp.Token)

		claims, err := auth.ValidateToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "2025", claims.Batch)
	})

	t.Run("no change keeps token", func(t *testing.T) {
		resp, err := svc.UpdateProfile(ctx, student.ID, &model.UpdateProfileRequest{Name: ptr(student.Name)})
		require.NoError(t, err)
		assert.Empty(t, resp.Token)
	})

	t.Run("password change reissues token", func(t *testing.T) {
		resp, err := svc.UpdateProfile(ctx, student.ID, &model.UpdateProfileRequest{Password: ptr("another1")})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.NoError(t, auth.CheckPassword(resp.Account.PasswordHash, "another1"))
	})

	t.Run("staff section and batch are ignored", func(t *testing.T) {
		resp, err := svc.UpdateProfile(ctx, staff.ID, &model.UpdateProfileRequest{Batch: ptr("2025"), Section: ptr("B")})
		require.NoError(t, err)
		assert.Empty(t, resp.Account.Batch)
		assert.Empty(t, resp.Account.Section)
	})

	t.Run("admin section and batch are applied", func(t *testing.T) {
		resp, err := svc.UpdateProfile(ctx, admin.ID, &model.UpdateProfileRequest{Batch: ptr("2025"), Section: ptr(" C ")})
		require.NoError(t, err)
		assert.Equal(t, "2025", resp.Account.Batch)
		assert.Equal(t, "C", resp.Account.Section)
	})

	t.Run("roll number taken", func(t *testing.T) {
		_, err := svc.UpdateProfile(ctx, student.ID, &model.UpdateProfileRequest{RollNumber: ptr("s2")})
		assert.ErrorIs(t, err, ErrRollNumberTaken)
	})

	t.Run("student batch cannot be cleared", func(t *testing.T) {
		_, err := svc.UpdateProfile(ctx, student.ID, &model.UpdateProfileRequest{Batch: ptr(" ")})
		var ve *ValidationError
		assert.True(t, errors.As(err, &ve))
	})

	t.Run("missing account", func(t *testing.T) {
		_, err := svc.UpdateProfile(ctx, uuid.New(), &model.UpdateProfileRequest{Name: ptr("x")})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCreateStaff(t *testing.T) {
	svc, _, _ := newTestAccounts(t)
	ctx := context.Background()

	req := &model.CreateStaffRequest{Name: "Grace", RollNumber: "T100", Password: "secret1", Department: "Math"}
	a, err := svc.CreateStaff(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, model.RoleStaff, a.Role)
	assert.True(t, a.IsApproved)

	_, err = svc.CreateStaff(ctx, req)
	assert.ErrorIs(t, err, ErrRollNumberTaken)
}
