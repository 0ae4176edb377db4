package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/dispo-backend/pkg/errors"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		out = append(out, entry)
	}
	return out
}

func TestLoggerCarriesContextFields(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "dispo-test", Output: &buf})

	ctx := logg.WithTransactionID(context.Background(), 42)
	ctx = logg.WithVHUID(ctx, 7)
	logg.Info(ctx, "reconciled")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "dispo-test", lines[0]["service"])
	assert.Equal(t, "reconciled", lines[0]["message"])
	assert.EqualValues(t, 42, lines[0]["transaction_id"])
	assert.EqualValues(t, 7, lines[0]["vhu_id"])
}

func TestLoggerErrorIncludesStack(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "dispo-test", Output: &buf})

	logg.Error(context.Background(), "failed", errors.New("boom"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "boom", lines[0]["error"])
	assert.NotEmpty(t, lines[0]["stack"])
	assert.NotContains(t, lines[0], "error_code")
}

func TestLoggerErrorTagsTypedErrors(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "dispo-test", Output: &buf})

	fault := pkgerrors.New(pkgerrors.CodeConsistency, "deleted transaction has no candidate")
	logg.Error(context.Background(), "reconcile failed", fmt.Errorf("handle: %w", fault))
	logg.Error(context.Background(), "publish failed", pkgerrors.New(pkgerrors.CodeDependency, "pubsub unavailable"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "CONSISTENCY_FAULT", lines[0]["error_code"])
	assert.Equal(t, false, lines[0]["retryable"])
	assert.Equal(t, "DEPENDENCY_ERROR", lines[1]["error_code"])
	assert.Equal(t, true, lines[1]["retryable"])
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "dispo-test", Output: &buf, Level: zerolog.WarnLevel})

	logg.Info(context.Background(), "hidden")
	logg.Debug(context.Background(), "hidden")
	assert.Zero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nope"))
}

func TestComponentTagsEntries(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "dispo-test", Output: &buf}).Component("transactions-worker")

	logg.Info(logg.WithCandidateID(context.Background(), 9), "candidate updated")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "transactions-worker", lines[0]["component"])
	assert.Equal(t, float64(9), lines[0]["candidate_id"])
}
