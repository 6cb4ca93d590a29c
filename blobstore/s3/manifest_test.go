package s3

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDDB implements DDBClient over an in-memory (array_uri, seq) table.
type fakeDDB struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue // key: uri + "#" + seq
}

func newFakeDDB() *fakeDDB {
	return &fakeDDB{items: make(map[string]map[string]types.AttributeValue)}
}

func itemKey(item map[string]types.AttributeValue) string {
	uri := item["array_uri"].(*types.AttributeValueMemberS).Value
	seq := item["seq"].(*types.AttributeValueMemberN).Value
	return uri + "#" + seq
}

func (f *fakeDDB) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := itemKey(in.Item)
	if aws.ToString(in.ConditionExpression) == "attribute_not_exists(seq)" {
		if _, exists := f.items[key]; exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	f.items[key] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDDB) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uri := in.ExpressionAttributeValues[":uri"].(*types.AttributeValueMemberS).Value
	var items []map[string]types.AttributeValue
	for _, item := range f.items {
		if item["array_uri"].(*types.AttributeValueMemberS).Value == uri {
			items = append(items, item)
		}
	}
	return &dynamodb.QueryOutput{Items: items}, nil
}

func (f *fakeDDB) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, itemKey(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestManifestCommitAndList(t *testing.T) {
	ctx := context.Background()
	m := NewManifest(newFakeDDB(), "tilego-commits", "s3://bucket/arrays/test")

	require.NoError(t, m.Commit(ctx, CommittedFragment{Seq: 1, Name: "frag_00001"}))
	require.NoError(t, m.Commit(ctx, CommittedFragment{Seq: 0, Name: "frag_00000"}))

	got, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Ascending recency order regardless of commit order.
	assert.Equal(t, "frag_00000", got[0].Name)
	assert.Equal(t, "frag_00001", got[1].Name)
}

func TestManifestCommitConflict(t *testing.T) {
	ctx := context.Background()
	m := NewManifest(newFakeDDB(), "tilego-commits", "s3://bucket/arrays/test")

	require.NoError(t, m.Commit(ctx, CommittedFragment{Seq: 3, Name: "a"}))
	err := m.Commit(ctx, CommittedFragment{Seq: 3, Name: "b"})
	assert.ErrorIs(t, err, ErrAlreadyCommitted)
}

func TestManifestRemove(t *testing.T) {
	ctx := context.Background()
	m := NewManifest(newFakeDDB(), "tilego-commits", "uri")

	for i := 0; i < 3; i++ {
		require.NoError(t, m.Commit(ctx, CommittedFragment{Seq: i, Name: "f" + strconv.Itoa(i)}))
	}
	require.NoError(t, m.Remove(ctx, 1))

	got, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Seq)
	assert.Equal(t, 2, got[1].Seq)
}
