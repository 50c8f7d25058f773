package agents

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kwesidadzie/bundlehub-backend/pkg/auth"
	"github.com/kwesidadzie/bundlehub-backend/pkg/config"
	pkgerrors "github.com/kwesidadzie/bundlehub-backend/pkg/errors"
	"github.com/kwesidadzie/bundlehub-backend/pkg/logger"
	"github.com/kwesidadzie/bundlehub-backend/pkg/security"
)

type fakeRecruiter struct {
	parents  []uuid.UUID
	children []uuid.UUID
	err      error
}

func (f *fakeRecruiter) RecordRecruitment(_ context.Context, parentID, childID uuid.UUID) error {
	f.parents = append(f.parents, parentID)
	f.children = append(f.children, childID)
	return f.err
}

func setupAgentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE IF NOT EXISTS agents (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  phone TEXT NOT NULL DEFAULT '',
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'agent',
  referral_code TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`).Error)
	return db
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "bundlehub-test",
		ExpirationMinutes: 60,
	}
}

func testPasswordConfig() config.PasswordConfig {
	// Small parameters keep the argon2id hashing fast under test.
	return config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     8,
		ArgonKeyLen:      16,
	}
}

func newTestService(t *testing.T, db *gorm.DB, referrals *fakeRecruiter) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), referrals, testJWTConfig(), testPasswordConfig(),
		logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	return svc
}

func TestService_RegisterHashesPasswordAndAssignsCode(t *testing.T) {
	db := setupAgentsTestDB(t)
	svc := newTestService(t, db, &fakeRecruiter{})

	agent, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Ama Serwaa",
		Email:    "Ama@Example.com",
		Phone:    "+233201234567",
		Password: "correct horse",
	})
	require.NoError(t, err)

	assert.Equal(t, "ama@example.com", agent.Email)
	assert.Len(t, agent.ReferralCode, 8)
	assert.NotEqual(t, "correct horse", agent.PasswordHash)

	ok, err := security.VerifyPassword("correct horse", agent.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestService_RegisterRecordsRecruitment(t *testing.T) {
	db := setupAgentsTestDB(t)
	referrals := &fakeRecruiter{}
	svc := newTestService(t, db, referrals)

	parent, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Kofi Mensah",
		Email:    "kofi@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	child, err := svc.Register(context.Background(), RegisterInput{
		Name:         "Yaa Asantewaa",
		Email:        "yaa@example.com",
		Password:     "password123",
		ReferralCode: parent.ReferralCode,
	})
	require.NoError(t, err)

	require.Len(t, referrals.parents, 1)
	assert.Equal(t, parent.ID, referrals.parents[0])
	assert.Equal(t, child.ID, referrals.children[0])
}

func TestService_RegisterRejectsUnknownReferralCode(t *testing.T) {
	db := setupAgentsTestDB(t)
	svc := newTestService(t, db, &fakeRecruiter{})

	_, err := svc.Register(context.Background(), RegisterInput{
		Name:         "Kofi Mensah",
		Email:        "kofi@example.com",
		Password:     "password123",
		ReferralCode: "NOPE1234",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestService_RegisterRejectsDuplicateEmail(t *testing.T) {
	db := setupAgentsTestDB(t)
	svc := newTestService(t, db, &fakeRecruiter{})

	_, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Kofi Mensah",
		Email:    "kofi@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterInput{
		Name:     "Other Kofi",
		Email:    "KOFI@example.com",
		Password: "password123",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict))
}

func TestService_LoginIssuesParseableToken(t *testing.T) {
	db := setupAgentsTestDB(t)
	svc := newTestService(t, db, &fakeRecruiter{})

	agent, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Kofi Mensah",
		Email:    "kofi@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	session, err := svc.Login(context.Background(), "kofi@example.com", "password123")
	require.NoError(t, err)

	claims, err := auth.ParseAccessToken(testJWTConfig(), session.Token)
	require.NoError(t, err)
	assert.Equal(t, agent.ID, claims.AgentID)
	assert.Equal(t, "agent", claims.Role)
}

func TestService_LoginRejectsBadCredentials(t *testing.T) {
	db := setupAgentsTestDB(t)
	svc := newTestService(t, db, &fakeRecruiter{})

	_, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Kofi Mensah",
		Email:    "kofi@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "kofi@example.com", "wrong")
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))

	_, err = svc.Login(context.Background(), "nobody@example.com", "password123")
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))
}
