package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyCreate_StoresHashNotRawKey(t *testing.T) {
	db := &mockDB{}
	s := NewAPIKeyStore(db)
	ctx := context.Background()

	var insertArgs []any
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) {
			insertArgs = args.Get(2).([]any)
		}).
		Return(execTag(1), nil)

	id, rawKey, err := s.Create(ctx, "ci-pipeline")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.True(t, strings.HasPrefix(rawKey, "dpo_"))

	require.Len(t, insertArgs, 4)
	wantHash := sha256.Sum256([]byte(rawKey))
	assert.Equal(t, hex.EncodeToString(wantHash[:]), insertArgs[1])
	assert.Equal(t, "ci-pipeline", insertArgs[2])
	db.AssertExpectations(t)
}

func TestAPIKeyCreate_InsertError(t *testing.T) {
	db := &mockDB{}
	s := NewAPIKeyStore(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(execTag(0), errors.New("db error"))

	_, _, err := s.Create(context.Background(), "ci-pipeline")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert api key")
}

func TestAPIKeyRevoke_AlreadyRevoked(t *testing.T) {
	db := &mockDB{}
	s := NewAPIKeyStore(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(execTag(0), nil)

	err := s.Revoke(context.Background(), "key-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already revoked")
}
