package s3

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrAlreadyCommitted is returned when a fragment sequence number has
// already been committed by another writer.
var ErrAlreadyCommitted = errors.New("fragment sequence already committed")

// DDBClient is the subset of the DynamoDB API the manifest uses.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// CommittedFragment is one entry of the fragment manifest: a finalized,
// read-visible fragment. Seq is the recency index used for duplicate
// resolution; higher means more recent.
type CommittedFragment struct {
	Seq  int
	Name string
}

// Manifest is a DynamoDB-backed list of committed fragments for one array.
// S3 lacks the compare-and-swap needed for safe concurrent fragment
// finalization; DynamoDB conditional writes supply it. Readers list the
// manifest to learn the fragment set visible to a query.
//
// Table schema: partition key array_uri (S), sort key seq (N).
type Manifest struct {
	client   DDBClient
	table    string
	arrayURI string
}

// NewManifest creates a manifest handle for the array at arrayURI.
func NewManifest(client DDBClient, table, arrayURI string) *Manifest {
	return &Manifest{client: client, table: table, arrayURI: arrayURI}
}

// Commit records a finalized fragment under the given sequence number. The
// write is conditional: committing an already-used sequence fails with
// ErrAlreadyCommitted, so two writers can never claim the same recency slot.
func (m *Manifest) Commit(ctx context.Context, f CommittedFragment) error {
	_, err := m.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(m.table),
		Item: map[string]types.AttributeValue{
			"array_uri": &types.AttributeValueMemberS{Value: m.arrayURI},
			"seq":       &types.AttributeValueMemberN{Value: strconv.Itoa(f.Seq)},
			"name":      &types.AttributeValueMemberS{Value: f.Name},
		},
		ConditionExpression: aws.String("attribute_not_exists(seq)"),
	})
	if err != nil {
		var cond *types.ConditionalCheckFailedException
		if errors.As(err, &cond) {
			return ErrAlreadyCommitted
		}
		return fmt.Errorf("s3: commit fragment: %w", err)
	}
	return nil
}

// List returns all committed fragments in ascending sequence order.
func (m *Manifest) List(ctx context.Context) ([]CommittedFragment, error) {
	var out []CommittedFragment
	var startKey map[string]types.AttributeValue
	for {
		resp, err := m.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(m.table),
			KeyConditionExpression: aws.String("array_uri = :uri"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":uri": &types.AttributeValueMemberS{Value: m.arrayURI},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("s3: list fragments: %w", err)
		}
		for _, item := range resp.Items {
			f, err := parseCommitted(item)
			if err != nil {
				return nil, err
			}
			out = append(out, f)
		}
		if resp.LastEvaluatedKey == nil {
			break
		}
		startKey = resp.LastEvaluatedKey
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// Remove drops a fragment from the manifest (consolidation cleanup).
func (m *Manifest) Remove(ctx context.Context, seq int) error {
	_, err := m.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(m.table),
		Key: map[string]types.AttributeValue{
			"array_uri": &types.AttributeValueMemberS{Value: m.arrayURI},
			"seq":       &types.AttributeValueMemberN{Value: strconv.Itoa(seq)},
		},
	})
	return err
}

func parseCommitted(item map[string]types.AttributeValue) (CommittedFragment, error) {
	seqAttr, ok := item["seq"].(*types.AttributeValueMemberN)
	if !ok {
		return CommittedFragment{}, errors.New("s3: manifest item missing seq")
	}
	seq, err := strconv.Atoi(seqAttr.Value)
	if err != nil {
		return CommittedFragment{}, fmt.Errorf("s3: bad seq %q: %w", seqAttr.Value, err)
	}
	nameAttr, ok := item["name"].(*types.AttributeValueMemberS)
	if !ok {
		return CommittedFragment{}, errors.New("s3: manifest item missing name")
	}
	return CommittedFragment{Seq: seq, Name: nameAttr.Value}, nil
}
