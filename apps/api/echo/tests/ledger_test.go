package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	. "github.com/academictoken/registry/apps/api/echo"
	"github.com/academictoken/registry/core/institution"
	"github.com/academictoken/registry/core/ledger"
	"github.com/academictoken/registry/tests"
)

func Test_ledgerApi_status(t *testing.T) {
	app, env := setup(t)

	rec := httpGet(t, app, "/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var empty StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &empty))
	assert.True(t, empty.Empty)
	assert.Equal(t, ledger.GenesisHash, empty.Hash)
	assert.Equal(t, 0, empty.Counts["institutions"])

	testutil.NewCatalog(t, env)

	rec = httpGet(t, app, "/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.Empty)
	assert.Equal(t, uint64(5), status.Height) // registered, authorized, course, 2 subjects
	assert.Equal(t, map[string]int{
		"institutions": 1,
		"courses":      1,
		"subjects":     2,
		"students":     0,
		"tokens":       0,
	}, status.Counts)
}

func Test_ledgerApi_blocks(t *testing.T) {
	app, env := setup(t)
	testutil.NewCatalog(t, env)

	blocks := func(path string) []ledger.Block {
		rec := httpGet(t, app, path, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var list []ledger.Block
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		return list
	}

	all := blocks("/v1/blocks")
	require.Len(t, all, 5)
	assert.Equal(t, ledger.GenesisHash, all[0].PrevHash)
	assert.Equal(t, institution.EventRegistered, all[0].Type)
	for i := 1; i < len(all); i++ {
		assert.Equal(t, all[i-1].Hash, all[i].PrevHash, "block %d links to its parent", all[i].Height)
	}

	page := blocks("/v1/blocks?from=2&limit=2")
	if assert.Len(t, page, 2) {
		assert.Equal(t, uint64(2), page[0].Height)
		assert.Equal(t, uint64(3), page[1].Height)
	}
	assert.Empty(t, blocks("/v1/blocks?from=100"))

	runHttpTests(t, app, []httpTest{
		{name: "Block", path: "/v1/blocks/3", wantData: marchallObj(t, all[2])},
		{name: "Unknown block", path: "/v1/blocks/42", wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "block not found"})},
		{name: "Bad height", path: "/v1/blocks/lol", wantCode: http.StatusBadRequest},
		{name: "Valid chain", path: "/v1/blocks/verify", wantData: marchallObj(t, ledger.VerifyResult{Valid: true, Height: 5})},
	})

	// rewriting history breaks the chain from that block on
	forged := all[2]
	forged.Creator = "forger"
	env.LedgerRepo.Tamper(forged)

	rec := httpGet(t, app, "/v1/blocks/verify", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res ledger.VerifyResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.Valid)
	assert.Equal(t, uint64(3), res.BadHeight)
	assert.Equal(t, "block 3: hash mismatch", res.Reason)
}

func Test_ledgerApi_subscribe(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	app, env := setup(t)
	srv := httptest.NewServer(app)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws/blocks"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	require.Eventually(t, func() bool { return env.Ledger.Hub().Len() == 1 }, time.Second, 10*time.Millisecond)

	operator := testutil.Operator(t, env, "operator@uni.test")
	inst, err := env.Institutions.Register(context.Background(), operator.Actor(), institution.NewInstitution{
		Name: "Federal University", Address: "1 Campus Road",
	})
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var b ledger.Block
	require.NoError(t, conn.ReadJSON(&b))
	assert.Equal(t, uint64(1), b.Height)
	assert.Equal(t, institution.EventRegistered, b.Type)
	assert.Equal(t, inst.Index, b.Ref)
	assert.Equal(t, operator.Address, b.Creator)
	assert.Equal(t, b.ComputeHash(), b.Hash)

	// the subscription goes away with the client
	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return env.Ledger.Hub().Len() == 0 }, time.Second, 10*time.Millisecond)
}
