package admins

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/edustack/identity/internal/common"
	"github.com/edustack/identity/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_AssignsID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+admins`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	admin, err := repo.Create(context.Background(), &models.Admin{Username: "root", PasswordHash: "$2a$x"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if admin.ID == "" {
		t.Fatalf("Create must assign an id")
	}
}

func TestGetByUsername_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "username", "password_hash", "created_at"}).
		AddRow("adm-1", "root", "$2a$x", time.Now())
	mock.ExpectQuery(`SELECT .* FROM admins WHERE username = \$1`).
		WithArgs("root").
		WillReturnRows(rows)

	admin, err := repo.GetByUsername(context.Background(), "root")
	if err != nil {
		t.Fatalf("GetByUsername error: %v", err)
	}
	if admin.ID != "adm-1" || admin.Username != "root" {
		t.Fatalf("unexpected admin: %+v", admin)
	}
}

func TestGetByUsername_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM admins WHERE username = \$1`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByUsername(context.Background(), "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestAny(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	got, err := repo.Any(context.Background())
	if err != nil {
		t.Fatalf("Any error: %v", err)
	}
	if !got {
		t.Fatalf("expected true")
	}
}
