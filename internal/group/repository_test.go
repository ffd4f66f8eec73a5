package group

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewRepository(db), mock
}

func TestSetRequestStatusMissingRow(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectExec(`UPDATE join_requests SET status = \$2`).
		WithArgs("ghost", RequestStatusApproved).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetRequestStatus(context.Background(), repo.db, "ghost", RequestStatusApproved)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestSetInviteCodeMissingGroup(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectExec(`UPDATE groups SET invite_code = \$2`).
		WithArgs("ghost", "ABCD1234").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetInviteCode(context.Background(), "ghost", "ABCD1234")
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestSearchPublicEmptySubstringMatchesAll(t *testing.T) {
	repo, mock := newTestRepo(t)

	// An empty substring degenerates to LIKE '%%', which matches every
	// public group; the LIMIT still applies.
	mock.ExpectQuery(`WHERE visibility = \$1 AND name LIKE '%' \|\| \$2 \|\| '%'`).
		WithArgs(VisibilityPublic, "", searchLimit).
		WillReturnRows(sqlmock.NewRows(groupCols))

	groups, err := repo.SearchPublic(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, groups)
	assert.NoError(t, mock.ExpectationsWereMet())
}
