package utils

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func TestGenerateCode_Length(t *testing.T) {
	code, err := GenerateCode(4)

	assert.NoError(t, err)
	assert.Len(t, code, 8) // hex doubles the byte count
}

func TestGenerateCode_Uppercase(t *testing.T) {
	code, err := GenerateCode(8)

	assert.NoError(t, err)
	assert.Equal(t, strings.ToUpper(code), code)
}

func TestGenerateCode_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateCode(4)
		assert.NoError(t, err)
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}

func TestRedisHealthCheck_Success(t *testing.T) {
	db, mock := redismock.NewClientMock()

	mock.ExpectPing().SetVal("PONG")

	err := RedisHealthCheck(db)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisHealthCheck_Failure(t *testing.T) {
	db, mock := redismock.NewClientMock()

	expectedError := errors.New("connection failed")
	mock.ExpectPing().SetErr(expectedError)

	err := RedisHealthCheck(db)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "redis health check failed")
	assert.Contains(t, err.Error(), "connection failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisHealthCheck_Timeout(t *testing.T) {
	db, mock := redismock.NewClientMock()

	mock.ExpectPing().RedisNil()

	start := time.Now()
	err := RedisHealthCheck(db)
	duration := time.Since(start)

	assert.Error(t, err)
	assert.Less(t, duration, 3*time.Second)
}
