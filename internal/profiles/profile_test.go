package profiles

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileJSON_OmitsUnsetSessionStamps(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	p, err := svc.Create(ctx, "u1", "a@example.com", "Alice")
	require.NoError(t, err)

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.NotContains(t, doc, "lastLoginAt")
	assert.NotContains(t, doc, "lastLogoutAt")
	assert.Contains(t, doc, "createdAt")

	require.NoError(t, svc.RecordLogin(ctx, "u1"))
	p, err = svc.Get(ctx, "u1")
	require.NoError(t, err)
	raw, err = json.Marshal(p)
	require.NoError(t, err)
	doc = map[string]interface{}{}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Contains(t, doc, "lastLoginAt")
	assert.NotContains(t, doc, "lastLogoutAt")
}
