package repository_test_test

import (
	"testing"

	"fido2_rp_ms/apperrors"
	"fido2_rp_ms/domain"
	"fido2_rp_ms/repository"
	"fido2_rp_ms/repository/repository_test"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

const testUserID = "9d3bf9f7-1c55-4e2a-a013-1d8a4f2b6a11"

func TestListByUser_SQLMock(t *testing.T) {
	conn, mock := repository_test.SetupMockDB(t)

	rows := sqlmock.NewRows([]string{"id", "user_id", "credential_id", "public_key", "sign_count"}).
		AddRow(1, testUserID, []byte{0x01}, []byte{0xAA}, 5).
		AddRow(2, testUserID, []byte{0x02}, []byte{0xBB}, 0)

	mock.ExpectQuery(`SELECT \* FROM "credentials" WHERE user_id = \$1 ORDER BY id`).
		WithArgs(testUserID).
		WillReturnRows(rows)

	repo := repository.NewCredentialRepository()
	credentials, err := repo.ListByUser(conn, testUserID)

	assert.NoError(t, err)
	assert.Len(t, credentials, 2)
	assert.Equal(t, []byte{0x01}, credentials[0].CredentialID)
	assert.Equal(t, uint32(5), credentials[0].SignCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFind_SQLMock(t *testing.T) {
	conn, mock := repository_test.SetupMockDB(t)

	rows := sqlmock.NewRows([]string{"id", "user_id", "credential_id", "public_key", "sign_count"}).
		AddRow(1, testUserID, []byte{0x01}, []byte{0xAA}, 5)

	mock.ExpectQuery(`SELECT \* FROM "credentials" WHERE credential_id = \$1 AND user_id = \$2 ORDER BY "credentials"\."id" LIMIT \$3`).
		WithArgs([]byte{0x01}, testUserID, 1).
		WillReturnRows(rows)

	repo := repository.NewCredentialRepository()
	credential, err := repo.Find(conn, []byte{0x01}, testUserID)

	assert.NoError(t, err)
	assert.Equal(t, uint32(5), credential.SignCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFind_WrongUserIsNotFound(t *testing.T) {
	conn, mock := repository_test.SetupMockDB(t)

	mock.ExpectQuery(`SELECT \* FROM "credentials" WHERE credential_id = \$1 AND user_id = \$2 ORDER BY "credentials"\."id" LIMIT \$3`).
		WithArgs([]byte{0x01}, "other-user", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "credential_id", "public_key", "sign_count"}))

	repo := repository.NewCredentialRepository()
	credential, err := repo.Find(conn, []byte{0x01}, "other-user")

	assert.Nil(t, credential)
	assert.True(t, apperrors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_DuplicateIsConflict(t *testing.T) {
	conn, mock := repository_test.SetupMockDB(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "credentials" WHERE credential_id = \$1 AND user_id = \$2`).
		WithArgs([]byte{0x01}, testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	repo := repository.NewCredentialRepository()
	err := repo.Save(conn, &domain.Credential{
		UserID:       testUserID,
		CredentialID: []byte{0x01},
		PublicKey:    []byte{0xAA},
	})

	assert.True(t, apperrors.IsConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_RacingDuplicateIsConflict(t *testing.T) {
	conn, mock := repository_test.SetupMockDB(t)

	// the count check passes, then the insert loses the race against a
	// concurrent registration and trips the unique index
	mock.ExpectQuery(`SELECT count\(\*\) FROM "credentials" WHERE credential_id = \$1 AND user_id = \$2`).
		WithArgs([]byte{0x01}, testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "credentials"`).
		WillReturnError(gorm.ErrDuplicatedKey)
	mock.ExpectRollback()

	repo := repository.NewCredentialRepository()
	err := repo.Save(conn, &domain.Credential{
		UserID:       testUserID,
		CredentialID: []byte{0x01},
		PublicKey:    []byte{0xAA},
	})

	assert.True(t, apperrors.IsConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSignCount_SQLMock(t *testing.T) {
	conn, mock := repository_test.SetupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "credentials" SET "sign_count"=\$1,"updated_at"=\$2 WHERE credential_id = \$3 AND user_id = \$4`).
		WithArgs(uint32(6), sqlmock.AnyArg(), []byte{0x01}, testUserID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := repository.NewCredentialRepository()
	err := repo.UpdateSignCount(conn, []byte{0x01}, testUserID, 6)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSignCount_MissingCredential(t *testing.T) {
	conn, mock := repository_test.SetupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "credentials" SET "sign_count"=\$1,"updated_at"=\$2 WHERE credential_id = \$3 AND user_id = \$4`).
		WithArgs(uint32(6), sqlmock.AnyArg(), []byte{0x09}, testUserID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	repo := repository.NewCredentialRepository()
	err := repo.UpdateSignCount(conn, []byte{0x09}, testUserID, 6)

	assert.True(t, apperrors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
