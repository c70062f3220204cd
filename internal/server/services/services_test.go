package services

import (
	"context"
	"database/sql"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/edustack/identity/internal/common"
	"github.com/edustack/identity/internal/dbx"
	"github.com/edustack/identity/internal/logging"
	"github.com/edustack/identity/internal/server/auth"
	"github.com/edustack/identity/internal/server/config"
	"github.com/edustack/identity/internal/server/mail"
	"github.com/edustack/identity/internal/server/models"
	"github.com/edustack/identity/internal/server/password"
	"github.com/edustack/identity/internal/server/repositories/accounts"
	"github.com/edustack/identity/internal/server/repositories/admins"
	"github.com/edustack/identity/internal/server/repositories/revocations"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// In-memory account repository. Lookups return copies so a service-side
// mutation only becomes visible after Update, matching the real store.
type fakeAccounts struct {
	rows []models.Account
}

func (f *fakeAccounts) find(match func(*models.Account) bool) (*models.Account, error) {
	for i := range f.rows {
		if match(&f.rows[i]) {
			cp := f.rows[i]
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeAccounts) Create(_ context.Context, account *models.Account) (*models.Account, error) {
	for i := range f.rows {
		if strings.EqualFold(f.rows[i].Email, account.Email) {
			return nil, common.ErrorDuplicateEmail
		}
		if account.ExternalID.Valid && f.rows[i].ExternalID.Valid && f.rows[i].ExternalID.String == account.ExternalID.String {
			return nil, common.ErrorDuplicateExternalID
		}
	}
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	account.CreatedAt = time.Now()
	f.rows = append(f.rows, *account)
	return account, nil
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (*models.Account, error) {
	return f.find(func(a *models.Account) bool { return a.ID == id })
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	return f.find(func(a *models.Account) bool { return strings.EqualFold(a.Email, email) })
}

func (f *fakeAccounts) GetByExternalID(_ context.Context, externalID string) (*models.Account, error) {
	return f.find(func(a *models.Account) bool { return a.ExternalID.Valid && a.ExternalID.String == externalID })
}

func (f *fakeAccounts) GetByEmailOrExternalID(ctx context.Context, email, externalID string) (*models.Account, error) {
	if acc, err := f.GetByEmail(ctx, email); err == nil {
		return acc, nil
	}
	return f.GetByExternalID(ctx, externalID)
}

func (f *fakeAccounts) GetByVerificationToken(_ context.Context, token string) (*models.Account, error) {
	return f.find(func(a *models.Account) bool { return a.VerificationToken.Valid && a.VerificationToken.String == token })
}

func (f *fakeAccounts) GetByResetToken(_ context.Context, token string) (*models.Account, error) {
	return f.find(func(a *models.Account) bool { return a.ResetToken.Valid && a.ResetToken.String == token })
}

func (f *fakeAccounts) Update(_ context.Context, account *models.Account) error {
	for i := range f.rows {
		if f.rows[i].ID == account.ID {
			f.rows[i] = *account
			return nil
		}
	}
	return common.ErrorNotFound
}

type fakeAdmins struct {
	rows []models.Admin
}

func (f *fakeAdmins) Create(_ context.Context, admin *models.Admin) (*models.Admin, error) {
	if admin.ID == "" {
		admin.ID = uuid.NewString()
	}
	admin.CreatedAt = time.Now()
	f.rows = append(f.rows, *admin)
	return admin, nil
}

func (f *fakeAdmins) GetByID(_ context.Context, id string) (*models.Admin, error) {
	for i := range f.rows {
		if f.rows[i].ID == id {
			cp := f.rows[i]
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeAdmins) GetByUsername(_ context.Context, username string) (*models.Admin, error) {
	for i := range f.rows {
		if f.rows[i].Username == username {
			cp := f.rows[i]
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeAdmins) Any(_ context.Context) (bool, error) {
	return len(f.rows) > 0, nil
}

type fakeRevocations struct {
	revoked map[string]time.Time
}

func (f *fakeRevocations) Insert(_ context.Context, jti string, now time.Time) error {
	if f.revoked == nil {
		f.revoked = map[string]time.Time{}
	}
	if _, dup := f.revoked[jti]; !dup {
		f.revoked[jti] = now
	}
	return nil
}

func (f *fakeRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	_, yes := f.revoked[jti]
	return yes, nil
}

func (f *fakeRevocations) PurgeOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for jti, at := range f.revoked {
		if at.Before(cutoff) {
			delete(f.revoked, jti)
			n++
		}
	}
	return n, nil
}

// fakeRepos vends the in-memory repositories regardless of the handle, so the
// same data is visible inside and outside transactions. The accounts field is
// the interface so tests can splice in wrappers (races, mid-flight mutations).
type fakeRepos struct {
	accounts    accounts.Repository
	admins      *fakeAdmins
	revocations *fakeRevocations
}

func (f *fakeRepos) Accounts(dbx.DBTX) accounts.Repository        { return f.accounts }
func (f *fakeRepos) Admins(dbx.DBTX) admins.Repository            { return f.admins }
func (f *fakeRepos) Revocations(dbx.DBTX) revocations.Repository  { return f.revocations }
func (f *fakeRepos) RunMigrations(context.Context, *sql.DB) error { return nil }

type fakeMailer struct {
	sent []mail.Message
	err  error
}

func (f *fakeMailer) Enqueue(msg mail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

// env bundles a coordinator wired to in-memory repositories. The *sql.DB is
// sqlmock: the fakes never touch it, only begin/commit pass through, so each
// transactional operation needs one expectTx call.
type env struct {
	svc      *AccountService
	adm      *AdminService
	mock     sqlmock.Sqlmock
	accounts *fakeAccounts
	admins   *fakeAdmins
	revs     *fakeRevocations
	mailer   *fakeMailer
	clock    time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService([]byte("access-key"), []byte("refresh-key"), time.Hour, 24*time.Hour)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.BcryptCost = bcrypt.MinCost

	e := &env{
		mock:     mock,
		accounts: &fakeAccounts{},
		admins:   &fakeAdmins{},
		revs:     &fakeRevocations{},
		mailer:   &fakeMailer{},
		clock:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	repos := &fakeRepos{accounts: e.accounts, admins: e.admins, revocations: e.revs}
	hasher := password.NewHasher(bcrypt.MinCost)
	logger := logging.NewJSON(io.Discard)

	e.svc = NewAccountService(db, repos, tokens, hasher, e.mailer, logger, cfg)
	e.svc.now = func() time.Time { return e.clock }
	e.adm = NewAdminService(db, repos, tokens, hasher, logger)
	e.adm.now = e.svc.now
	return e
}

func (e *env) expectTx() {
	e.mock.ExpectBegin()
	e.mock.ExpectCommit()
}

func (e *env) hash(t *testing.T, plaintext string) string {
	t.Helper()
	h, err := e.svc.hasher.Hash(plaintext)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return h
}

// seedAccount inserts a row directly into the fake store.
func (e *env) seedAccount(t *testing.T, acc models.Account) models.Account {
	t.Helper()
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	e.accounts.rows = append(e.accounts.rows, acc)
	return acc
}

func wantResult(t *testing.T, res *Result, err error, status int, message string) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res == nil {
		t.Fatal("nil result")
	}
	if res.Status != status || res.Message != message {
		t.Fatalf("got (%d, %q), want (%d, %q)", res.Status, res.Message, status, message)
	}
}
