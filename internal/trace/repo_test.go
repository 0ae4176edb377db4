package trace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/dispo-backend/internal/testdb"
	"github.com/angelmondragon/dispo-backend/pkg/config"
	"github.com/angelmondragon/dispo-backend/pkg/db/models"
	"github.com/angelmondragon/dispo-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dispo-backend/pkg/errors"
)

func newTestRepository(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()
	conn := testdb.Open(t)
	return NewRepository(conn, config.TraceConfig{}, nil, nil), conn
}

func TestAddEventInsertsThenUpdates(t *testing.T) {
	repo, conn := newTestRepository(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)

	inserted, err := repo.AddEvent(ctx, Event{
		VHUID:     10,
		EventTime: at,
		Type:      enums.HUTraceTypeMaterialReceipt,
		InOutID:   5,
	})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.AddEvent(ctx, Event{
		VHUID:      10,
		EventTime:  at,
		Type:       enums.HUTraceTypeMaterialMovement,
		MovementID: 8,
	})
	require.NoError(t, err)
	assert.False(t, inserted)

	var rows []models.HUTrace
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.HUTraceTypeMaterialMovement, rows[0].Type)
	assert.Equal(t, int64(8), rows[0].MovementID)
	assert.Zero(t, rows[0].InOutID, "update replaces every field")
}

func TestAddEventDuplicateKeyIsConsistencyFault(t *testing.T) {
	repo, conn := newTestRepository(t)
	at := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)
	// rows written before the unique key index existed
	require.NoError(t, conn.Migrator().DropIndex(&models.HUTrace{}, huTraceKeyIndex))
	for i := 0; i < 2; i++ {
		row := models.HUTrace{VHUID: 20, EventTime: at, Type: enums.HUTraceTypeMaterialPicking, IsActive: true}
		require.NoError(t, conn.Create(&row).Error)
	}

	_, err := repo.AddEvent(context.Background(), Event{VHUID: 20, EventTime: at, Type: enums.HUTraceTypeMaterialPicking})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConsistency))
	assert.False(t, pkgerrors.IsRetryable(err))

	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Len(t, details["record_ids"], 2)
}

func TestAddEventLosingInsertRaceUpdates(t *testing.T) {
	repo, conn := newTestRepository(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	competing := models.HUTrace{VHUID: 25, EventTime: at, Type: enums.HUTraceTypeMaterialReceipt, InOutID: 3, IsActive: true}
	require.NoError(t, conn.Create(&competing).Error)

	// the first lookup misses the row, as if it ran before the competing writer committed
	stale := true
	require.NoError(t, conn.Callback().Query().After("gorm:query").Register("test:stale_hu_trace_lookup", func(tx *gorm.DB) {
		if !stale || tx.Statement.Table != "hu_traces" {
			return
		}
		if rows, ok := tx.Statement.Dest.(*[]models.HUTrace); ok {
			stale = false
			*rows = nil
		}
	}))

	inserted, err := repo.AddEvent(ctx, Event{VHUID: 25, EventTime: at, Type: enums.HUTraceTypeMaterialMovement, MovementID: 9})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.False(t, stale)

	var rows []models.HUTrace
	require.NoError(t, conn.Where("vhu_id = ?", 25).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, competing.ID, rows[0].ID)
	assert.Equal(t, int64(9), rows[0].MovementID)
}

func TestQueryIgnoresInactiveRecords(t *testing.T) {
	repo, conn := newTestRepository(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)

	_, err := repo.AddEvent(ctx, Event{VHUID: 30, EventTime: at, Type: enums.HUTraceTypeMaterialShipment, ShipmentScheduleID: 4})
	require.NoError(t, err)
	require.NoError(t, conn.Model(&models.HUTrace{}).Where("vhu_id = ?", 30).Update("is_active", false).Error)

	records, err := repo.Query(ctx, Query{ShipmentScheduleID: 4})
	require.NoError(t, err)
	assert.Empty(t, records)

	inserted, err := repo.AddEvent(ctx, Event{VHUID: 30, EventTime: at, Type: enums.HUTraceTypeMaterialShipment})
	require.NoError(t, err)
	assert.True(t, inserted, "inactive rows do not count as existing")
}

func TestQueryLineageAgainstDatabase(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 4, 7, 0, 0, 0, time.UTC)

	events := []Event{
		{VHUID: 100, EventTime: at, Type: enums.HUTraceTypeMaterialReceipt},
		{VHUID: 200, VHUSourceID: 100, EventTime: at.Add(time.Hour), Type: enums.HUTraceTypeTransformLoad},
		{VHUID: 300, VHUSourceID: 200, EventTime: at.Add(2 * time.Hour), Type: enums.HUTraceTypeProductionIssue},
	}
	for _, event := range events {
		_, err := repo.AddEvent(ctx, event)
		require.NoError(t, err)
	}

	backward, err := repo.Query(ctx, Query{VHUID: 300, RecursionMode: enums.RecursionModeBackward})
	require.NoError(t, err)
	assert.Equal(t, []int64{300, 200, 100}, vhuIDs(backward))

	forward, err := repo.Query(ctx, Query{VHUID: 100, RecursionMode: enums.RecursionModeForward})
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 200, 300}, vhuIDs(forward))

	byTime, err := repo.Query(ctx, Query{VHUID: 200, EventTime: at.Add(time.Hour).In(time.FixedZone("CET", 3600))})
	require.NoError(t, err)
	require.Len(t, byTime, 1)
	assert.Equal(t, int64(100), byTime[0].VHUSourceID)

	empty, err := repo.Query(ctx, Query{})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFindOrdersByEventTimeThenID(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 5, 7, 0, 0, 0, time.UTC)

	for _, event := range []Event{
		{VHUID: 2, TopLevelHUID: 9, EventTime: at.Add(time.Minute), Type: enums.HUTraceTypeMaterialMovement},
		{VHUID: 1, TopLevelHUID: 9, EventTime: at, Type: enums.HUTraceTypeMaterialMovement},
	} {
		_, err := repo.AddEvent(ctx, event)
		require.NoError(t, err)
	}

	rows, err := repo.Find(ctx, Query{TopLevelHUID: 9})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0].VHUID)
	assert.Equal(t, int64(2), rows[1].VHUID)
}

func vhuIDs(records []Record) []int64 {
	out := make([]int64, 0, len(records))
	for _, record := range records {
		out = append(out, record.VHUID)
	}
	return out
}
