package infra

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSQLSkipsComments(t *testing.T) {
	src := `-- plans
CREATE TABLE a (id INT);

-- expenses
CREATE INDEX a_idx ON a (id);
`
	stmts := SplitSQL(StripSQLComments(src))
	assert.Equal(t, []string{"CREATE TABLE a (id INT)", "CREATE INDEX a_idx ON a (id)"}, stmts)
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := NewLogger(false, "loud")
	assert.Error(t, err)

	logger, err := NewLogger(true, "debug")
	assert.NoError(t, err)
	assert.NotNil(t, logger)
}
