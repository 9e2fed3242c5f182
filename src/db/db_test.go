package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetMockDBReplacesSingleton(t *testing.T) {
	gormDB, _ := GetMockDB()

	assert.Same(t, gormDB, GetDb())
	assert.Equal(t, "postgres", gormDB.Name())
}
