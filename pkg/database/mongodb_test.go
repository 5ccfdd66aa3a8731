package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestRecordTTLIndex(t *testing.T) {
	idx := RecordTTLIndex(48 * time.Hour)

	assert.Equal(t, bson.D{{Key: "updated_at", Value: 1}}, idx.Keys)
	require.NotNil(t, idx.Options)
	require.NotNil(t, idx.Options.ExpireAfterSeconds)
	assert.Equal(t, int32(48*60*60), *idx.Options.ExpireAfterSeconds)
	require.NotNil(t, idx.Options.Name)
	assert.Equal(t, "cart_records_updated_at_ttl", *idx.Options.Name)
}
