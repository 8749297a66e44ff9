package psql

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynhne/user-management/internal/core/domain"
)

var columns = []string{"id", "first_name", "last_name", "email", "phone", "company", "role", "country"}

func newRepoWithMock(t *testing.T) (*UserRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserRepository(db), mock, db
}

// requireReleased asserts that every acquired connection went back to the pool.
func requireReleased(t *testing.T, db *sql.DB) {
	t.Helper()
	assert.Zero(t, db.Stats().InUse, "connection was not released")
}

func strPtr(s string) *string { return &s }

func TestList_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)

	rows := sqlmock.NewRows(columns).
		AddRow(1, "Ann", "Lee", "a@x.com", nil, nil, nil, nil).
		AddRow(2, "Bob", "Ray", "b@x.com", "555", "Acme", "Dev", "NZ")
	mock.ExpectQuery(`SELECT (.+) FROM users ORDER BY id`).WillReturnRows(rows)

	users, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)

	assert.Equal(t, int64(1), users[0].ID)
	assert.Nil(t, users[0].Phone)
	require.NotNil(t, users[1].Company)
	assert.Equal(t, "Acme", *users[1].Company)
	assert.Equal(t, "NZ", *users[1].Country)

	require.NoError(t, mock.ExpectationsWereMet())
	requireReleased(t, db)
}

func TestList_Empty(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT (.+) FROM users`).WillReturnRows(sqlmock.NewRows(columns))

	users, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
	requireReleased(t, db)
}

func TestList_QueryError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT (.+) FROM users`).WillReturnError(errors.New("connection refused"))

	users, err := repo.List(context.Background())
	require.Error(t, err)
	assert.Nil(t, users)
	assert.Contains(t, err.Error(), "connection refused")
	requireReleased(t, db)
}

func TestList_RowError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)

	rows := sqlmock.NewRows(columns).
		AddRow(1, "Ann", "Lee", "a@x.com", nil, nil, nil, nil).
		RowError(0, errors.New("broken pipe"))
	mock.ExpectQuery(`SELECT (.+) FROM users`).WillReturnRows(rows)

	_, err := repo.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken pipe")
	requireReleased(t, db)
}

func TestGetByID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)

	rows := sqlmock.NewRows(columns).AddRow(7, "Ann", "Lee", "a@x.com", "555", nil, "Admin", nil)
	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1`).WithArgs(int64(7)).WillReturnRows(rows)

	u, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, "Ann", u.FirstName)
	assert.Equal(t, "555", *u.Phone)
	assert.Nil(t, u.Company)
	assert.Equal(t, "Admin", *u.Role)

	require.NoError(t, mock.ExpectationsWereMet())
	requireReleased(t, db)
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1`).WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows(columns))

	u, err := repo.GetByID(context.Background(), 404)
	assert.Nil(t, u)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	requireReleased(t, db)
}

func TestGetByID_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1`).WithArgs(int64(1)).
		WillReturnError(errors.New("db down"))

	_, err := repo.GetByID(context.Background(), 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrUserNotFound)
	assert.Contains(t, err.Error(), "db down")
	requireReleased(t, db)
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO users \(first_name, last_name, email, phone, company, role, country\)`).
		WithArgs("Ann", "Lee", "a@x.com", nil, "Acme", nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	u, err := repo.Create(context.Background(), domain.UserInput{
		FirstName: "Ann",
		LastName:  "Lee",
		Email:     "a@x.com",
		Company:   strPtr("Acme"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	assert.Equal(t, "Acme", *u.Company)
	assert.Nil(t, u.Phone)

	require.NoError(t, mock.ExpectationsWereMet())
	requireReleased(t, db)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO users`).WillReturnError(errors.New("connection reset"))

	u, err := repo.Create(context.Background(), domain.UserInput{FirstName: "Ann", LastName: "Lee", Email: "a@x.com"})
	assert.Nil(t, u)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert user: connection reset")
	requireReleased(t, db)
}

func TestUpdate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)

	rows := sqlmock.NewRows(columns).AddRow(3, "Ann", "Park", "ann@x.com", nil, nil, nil, "KR")
	mock.ExpectQuery(`(?s)UPDATE users\s+SET first_name = \$1, (.+)\s+WHERE id = \$8\s+RETURNING`).
		WithArgs("Ann", "Park", "ann@x.com", nil, nil, nil, "KR", int64(3)).
		WillReturnRows(rows)

	u, err := repo.Update(context.Background(), 3, domain.UserInput{
		FirstName: "Ann",
		LastName:  "Park",
		Email:     "ann@x.com",
		Country:   strPtr("KR"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), u.ID)
	assert.Equal(t, "Park", u.LastName)
	assert.Nil(t, u.Phone)

	require.NoError(t, mock.ExpectationsWereMet())
	requireReleased(t, db)
}

func TestUpdate_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)

	mock.ExpectQuery(`UPDATE users`).WillReturnRows(sqlmock.NewRows(columns))

	u, err := repo.Update(context.Background(), 99, domain.UserInput{FirstName: "A", LastName: "B", Email: "c"})
	assert.Nil(t, u)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	requireReleased(t, db)
}

func TestUpdate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)

	mock.ExpectQuery(`UPDATE users`).WillReturnError(errors.New("deadlock detected"))

	_, err := repo.Update(context.Background(), 1, domain.UserInput{FirstName: "A", LastName: "B", Email: "c"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrUserNotFound)
	requireReleased(t, db)
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{name: "existing row", affected: 1, want: true},
		{name: "missing row", affected: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)

			mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).WithArgs(int64(5)).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			got, err := repo.Delete(context.Background(), 5)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			requireReleased(t, db)
		})
	}
}

func TestDelete_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)

	mock.ExpectExec(`DELETE FROM users`).WillReturnError(errors.New("db down"))

	ok, err := repo.Delete(context.Background(), 5)
	require.Error(t, err)
	assert.False(t, ok)
	requireReleased(t, db)
}

func TestAcquireError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	mock.ExpectClose()
	require.NoError(t, db.Close())

	_, err := repo.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acquire connection")
}

func TestList_QueuesWhilePoolExhausted(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	held, err := db.Conn(ctx)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT (.+) FROM users ORDER BY id`).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(1, "Ann", "Lee", "a@x.com", nil, nil, nil, nil))

	done := make(chan error, 1)
	go func() {
		_, err := repo.List(ctx)
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("List returned while the only connection was held: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, int64(1), db.Stats().WaitCount)

	require.NoError(t, held.Close())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("List did not resume after the connection was released")
	}

	require.NoError(t, mock.ExpectationsWereMet())
	requireReleased(t, db)
}

func TestList_QueuedCallerHonoursContext(t *testing.T) {
	repo, _, db := newRepoWithMock(t)
	db.SetMaxOpenConns(1)

	held, err := db.Conn(context.Background())
	require.NoError(t, err)
	defer held.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = repo.List(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
