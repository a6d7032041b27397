package kv

import (
	"context"
	"regexp"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamo keeps tables in memory and understands just the expressions the
// adapter builds: SET updates, attribute_exists / attribute_not_exists
// conditions, one equality key condition and one boolean equality filter.
type fakeDynamo struct {
	mu       sync.Mutex
	tables   map[string]map[string]map[string]types.AttributeValue
	keys     map[string]string
	pageSize int
	err      error
	scans    int
}

var setClause = regexp.MustCompile(`(#\w+)\s*=\s*(:\w+)`)

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{
		tables: map[string]map[string]map[string]types.AttributeValue{},
		keys: map[string]string{
			"Users":          "userId",
			"ProcessedFiles": "fileId",
		},
	}
}

func testDynamoConfig() DynamoConfig {
	return DynamoConfig{UsersTable: "Users", EmailIndex: "EmailIndex", ProcessedFilesTable: "ProcessedFiles"}
}

func strAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func (f *fakeDynamo) table(name string) map[string]map[string]types.AttributeValue {
	t, ok := f.tables[name]
	if !ok {
		t = map[string]map[string]types.AttributeValue{}
		f.tables[name] = t
	}
	return t
}

func (f *fakeDynamo) put(table string, item map[string]types.AttributeValue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.table(table)[strAttr(item, f.keys[table])] = item
}

func (f *fakeDynamo) get(table, key string) map[string]types.AttributeValue {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.table(table)[key]
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strAttr(in.Key, f.keys[*in.TableName])
	return &dynamodb.GetItemOutput{Item: f.table(*in.TableName)[key]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.table(*in.TableName)
	key := strAttr(in.Item, f.keys[*in.TableName])
	if _, exists := t[key]; exists && in.ConditionExpression != nil {
		return nil, &types.ConditionalCheckFailedException{}
	}
	t[key] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.table(*in.TableName)
	key := strAttr(in.Key, f.keys[*in.TableName])
	item, exists := t[key]
	if !exists {
		if in.ConditionExpression != nil {
			return nil, &types.ConditionalCheckFailedException{}
		}
		item = map[string]types.AttributeValue{}
		for k, v := range in.Key {
			item[k] = v
		}
	}
	updated := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		updated[k] = v
	}
	for _, m := range setClause.FindAllStringSubmatch(*in.UpdateExpression, -1) {
		updated[in.ExpressionAttributeNames[m[1]]] = in.ExpressionAttributeValues[m[2]]
	}
	t[key] = updated
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var attr, want string
	for _, n := range in.ExpressionAttributeNames {
		attr = n
	}
	for _, v := range in.ExpressionAttributeValues {
		want = v.(*types.AttributeValueMemberS).Value
	}
	var items []map[string]types.AttributeValue
	for _, item := range f.sorted(*in.TableName) {
		if strAttr(item, attr) == want {
			items = append(items, item)
		}
	}
	return &dynamodb.QueryOutput{Items: items, Count: int32(len(items))}, nil
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans++

	all := f.sorted(*in.TableName)
	keyAttr := f.keys[*in.TableName]
	start := 0
	if in.ExclusiveStartKey != nil {
		last := strAttr(in.ExclusiveStartKey, keyAttr)
		for start < len(all) && strAttr(all[start], keyAttr) <= last {
			start++
		}
	}
	end := len(all)
	if f.pageSize > 0 && start+f.pageSize < end {
		end = start + f.pageSize
	}
	if in.Limit != nil && start+int(*in.Limit) < end {
		end = start + int(*in.Limit)
	}
	page := all[start:end]

	if in.FilterExpression != nil {
		page = f.filter(page, in)
	}

	out := &dynamodb.ScanOutput{Count: int32(len(page))}
	if in.Select != types.SelectCount {
		out.Items = page
	}
	if end < len(all) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{keyAttr: all[end-1][keyAttr]}
	}
	return out, nil
}

func (f *fakeDynamo) filter(items []map[string]types.AttributeValue, in *dynamodb.ScanInput) []map[string]types.AttributeValue {
	var attr string
	var want bool
	for _, n := range in.ExpressionAttributeNames {
		if n == "isCurrentlyActive" {
			attr = n
		}
	}
	for _, v := range in.ExpressionAttributeValues {
		if b, ok := v.(*types.AttributeValueMemberBOOL); ok {
			want = b.Value
		}
	}
	var out []map[string]types.AttributeValue
	for _, item := range items {
		if b, ok := item[attr].(*types.AttributeValueMemberBOOL); ok && b.Value == want {
			out = append(out, item)
		}
	}
	return out
}

func (f *fakeDynamo) sorted(table string) []map[string]types.AttributeValue {
	t := f.table(table)
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]map[string]types.AttributeValue, 0, len(keys))
	for _, k := range keys {
		out = append(out, t[k])
	}
	return out
}
