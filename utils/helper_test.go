package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"spirits", "wine", "spirits"}, SplitAndTrim(" spirits, wine,,  spirits ,"))
	assert.Empty(t, SplitAndTrim(""))
	assert.Empty(t, SplitAndTrim(" , ,"))
}

func TestUniqueSlice(t *testing.T) {
	assert.Equal(t, []string{"b", "a"}, UniqueSlice([]string{"b", "a", "b"}))
	assert.Nil(t, UniqueSlice([]int{}))
}

func TestFormatPhoneNumber(t *testing.T) {
	assert.Equal(t, "+9592123456", FormatPhoneNumber(" 09 212 3456 ", "MM"))
	assert.Equal(t, "call me", FormatPhoneNumber("call me", "MM"))
	assert.Equal(t, "", FormatPhoneNumber("   ", "MM"))
}

func TestRoundScore(t *testing.T) {
	assert.Equal(t, 0.8333, RoundScore(5.0/6.0, 4))
	assert.Equal(t, 1.0, RoundScore(1, 4))
}

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, IsDuplicateKeyErr(&mysqlDriver.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.False(t, IsDuplicateKeyErr(&mysqlDriver.MySQLError{Number: 1213}))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: catalog_entities.name")))
	assert.False(t, IsDuplicateKeyErr(errors.New("disk full")))
}

func TestIsRecordNotFound(t *testing.T) {
	assert.True(t, IsRecordNotFound(gorm.ErrRecordNotFound))
	assert.True(t, IsRecordNotFound(fmt.Errorf("lookup: %w", ErrorRecordNotFound)))
	assert.False(t, IsRecordNotFound(errors.New("other")))
}

func TestProcessValidationErrors(t *testing.T) {
	type body struct {
		Kind string `validate:"required"`
		Rows []int  `validate:"min=1"`
	}
	err := validator.New().Struct(body{})
	assert.Equal(t, map[string]string{"Kind": "required", "Rows": "min"}, ProcessValidationErrors(err))
	assert.Empty(t, ProcessValidationErrors(errors.New("not a validation error")))
}

func TestImportObjectKey(t *testing.T) {
	key := ImportObjectKey("biz-1", "brand", "Brands.XLSX")
	assert.Regexp(t, `^biz-1/imports/brand/[0-9a-f-]{36}\.xlsx$`, key)
}
