package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	apperrors "github.com/kbukum/ormtest/errors"
)

func TestIsConnectionError(t *testing.T) {
	assert.False(t, IsConnectionError(nil))
	assert.True(t, IsConnectionError(errors.New("dial tcp: Connection Refused")))
	assert.True(t, IsConnectionError(errors.New("sql: database is closed")))
	assert.False(t, IsConnectionError(errors.New("syntax error")))
}

func TestIsDuplicateError(t *testing.T) {
	assert.False(t, IsDuplicateError(nil))
	assert.True(t, IsDuplicateError(fmt.Errorf("flush: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, IsDuplicateError(errors.New("UNIQUE constraint failed: users.email")))
	assert.False(t, IsDuplicateError(errors.New("no such table")))
}

func TestFromDatabase(t *testing.T) {
	assert.Nil(t, FromDatabase(nil, "user"))

	tests := []struct {
		name string
		err  error
		code apperrors.ErrorCode
	}{
		{"not found", gorm.ErrRecordNotFound, apperrors.ErrCodeNotFound},
		{"duplicate", gorm.ErrDuplicatedKey, apperrors.ErrCodeAlreadyExists},
		{"connection", errors.New("broken pipe"), apperrors.ErrCodeConnectionFailed},
		{"other", errors.New("no such column: foo"), apperrors.ErrCodeDatabaseError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			appErr := FromDatabase(tc.err, "user")
			assert.Equal(t, tc.code, appErr.Code)
			assert.ErrorIs(t, appErr, tc.err)
		})
	}
}
