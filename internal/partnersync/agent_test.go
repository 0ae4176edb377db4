package partnersync

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/dispo-backend/pkg/logger"
)

func TestNullAgentLogsRequests(t *testing.T) {
	var buf bytes.Buffer
	var agent Agent = NewNullAgent(logger.New(logger.Options{ServiceName: "partnersync-test", Output: &buf}))
	ctx := context.Background()

	require.NoError(t, agent.SyncBPartners(ctx, SyncBPartnersRequest{BPartners: []SyncBPartner{{UUID: "bp-1", Name: "Farm"}}}))
	require.NoError(t, agent.SyncProducts(ctx, SyncProductsRequest{Products: []SyncProduct{{UUID: "p-1"}}}))
	require.NoError(t, agent.SyncInfoMessage(ctx, SyncInfoMessageRequest{Message: "hello"}))
	require.NoError(t, agent.Confirm(ctx, SyncConfirmations{Confirmations: []SyncConfirmation{{ConfirmID: "c-1"}}}))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 4)

	var first map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, "syncBPartners", first["sync_op"])
	request, ok := first["request"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, request["bpartners"], 1)

	var last map[string]any
	require.NoError(t, json.Unmarshal(lines[3], &last))
	assert.Equal(t, "confirm", last["message"])
}

func TestNullAgentWithoutLogger(t *testing.T) {
	assert.NoError(t, NewNullAgent(nil).SyncInfoMessage(context.Background(), SyncInfoMessageRequest{}))
}
