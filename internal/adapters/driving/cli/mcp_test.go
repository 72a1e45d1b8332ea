package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
)

func TestMCPServeCmd_Flags(t *testing.T) {
	flag := mcpServeCmd.Flags().Lookup("port")
	require.NotNil(t, flag)
	assert.Equal(t, "p", flag.Shorthand)
	assert.Equal(t, "0", flag.DefValue)
	assert.Contains(t, mcpServeCmd.Long, "analyze_document")
}

func TestMCPServeCmd_FactoryError(t *testing.T) {
	_, analyzer := setupTestDeps(t)
	analyzer.factErr = domain.ErrOracleUnavailable

	_, err := execute(t, "mcp", "serve")

	assert.ErrorIs(t, err, domain.ErrOracleUnavailable)
}
