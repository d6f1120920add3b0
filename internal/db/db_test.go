package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLiteInMemory(t *testing.T) {
	gdb, err := Open("sqlite", "file::memory:")
	require.NoError(t, err)

	var one int
	require.NoError(t, gdb.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("oracle", "x")
	require.Error(t, err)
}

func TestDriverFor(t *testing.T) {
	assert.Equal(t, "mysql", DriverFor("app:apppass@tcp(127.0.0.1:3306)/brands_digger"))
	assert.Equal(t, "sqlite", DriverFor("file:brands_digger.db?cache=shared"))
}
