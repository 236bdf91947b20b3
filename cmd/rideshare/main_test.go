package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/rideshare-importer/internal/domain"
	"github.com/pkordes/rideshare-importer/internal/messages"
)

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	root := newRootCmd()

	for _, path := range [][]string{{"serve"}, {"import"}, {"migrate", "up"}, {"migrate", "down"}, {"migrate", "status"}} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, "find %v", path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestImportCmd_RequiresFile(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"import"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"file"`)
}

func TestProgressPrinter_OneLinePerTrip(t *testing.T) {
	var out bytes.Buffer
	report := progressPrinter(&out, messages.Default())

	report.TripProcessed(domain.TripResult{ExternalID: "t1", Outcome: domain.OutcomeCreated})
	report.TripProcessed(domain.TripResult{ExternalID: "t2", Outcome: domain.OutcomeFailed, Err: errors.New("boom")})

	assert.Equal(t, "Importing t1.\nImporting t2. Failed to import t2: boom\n", out.String())
}
