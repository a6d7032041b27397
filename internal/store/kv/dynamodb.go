package kv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"session-handlers/internal/common/logger"
	"session-handlers/internal/models"
	"session-handlers/internal/store"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of *dynamodb.Client the adapter calls.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

type DynamoConfig struct {
	UsersTable          string
	EmailIndex          string
	ProcessedFilesTable string
}

type DynamoStore struct {
	api    DynamoAPI
	cfg    DynamoConfig
	logger logger.Logger
	now    func() time.Time
}

var _ store.KVStore = (*DynamoStore)(nil)

func NewDynamoStore(api DynamoAPI, cfg DynamoConfig, log logger.Logger) *DynamoStore {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &DynamoStore{
		api:    api,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"store": "dynamodb"}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func userKey(userID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: userID},
	}
}

func (s *DynamoStore) CreateUser(ctx context.Context, u *models.User) error {
	item, err := attributevalue.MarshalMap(fromUser(u))
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	cond := expression.AttributeNotExists(expression.Name("userId"))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("build condition: %w", err)
	}

	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(s.cfg.UsersTable),
		Item:                     item,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("%w: %s", store.ErrUserExists, u.UserID)
		}
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

func (s *DynamoStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.cfg.UsersTable),
		Key:       userKey(userID),
	})
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, store.ErrUserNotFound
	}
	return decodeUser(out.Item)
}

// FindUserByEmail queries the email index; the first match wins.
func (s *DynamoStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	keyCond := expression.Key("email").Equal(expression.Value(email))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("build key condition: %w", err)
	}

	out, err := s.api.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.cfg.UsersTable),
		IndexName:                 aws.String(s.cfg.EmailIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, fmt.Errorf("query email index: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, store.ErrUserNotFound
	}
	return decodeUser(out.Items[0])
}

// SaveSessions rewrites the session list and aggregates. The condition keeps
// it from creating a record for a user that does not exist.
func (s *DynamoStore) SaveSessions(ctx context.Context, u *models.User) error {
	update := expression.
		Set(expression.Name("sessions"), expression.Value(fromSessions(u.Sessions))).
		Set(expression.Name("totalSessions"), expression.Value(u.TotalSessions)).
		Set(expression.Name("activeSessions"), expression.Value(u.ActiveSessions)).
		Set(expression.Name("isCurrentlyActive"), expression.Value(u.IsCurrentlyActive)).
		Set(expression.Name("updatedAt"), expression.Value(formatTime(s.now())))
	if u.LastLoginTime != nil {
		update = update.Set(expression.Name("lastLoginTime"), expression.Value(formatTime(*u.LastLoginTime)))
	}
	cond := expression.AttributeExists(expression.Name("userId"))

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	_, err = s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.cfg.UsersTable),
		Key:                       userKey(u.UserID),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("%w: %s", store.ErrUserNotFound, u.UserID)
		}
		return fmt.Errorf("update sessions: %w", err)
	}
	return nil
}

// ScanUsers walks the whole users table page by page.
func (s *DynamoStore) ScanUsers(ctx context.Context, fn store.UserVisitor) error {
	p := dynamodb.NewScanPaginator(s.api, &dynamodb.ScanInput{
		TableName: aws.String(s.cfg.UsersTable),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("scan users: %w", err)
		}
		for _, item := range page.Items {
			u, decodeErr := decodeUser(item)
			if err := fn(u, decodeErr); err != nil {
				return err
			}
		}
	}
	return nil
}

func activeFilter() (expression.Expression, error) {
	filt := expression.Name("isCurrentlyActive").Equal(expression.Value(true))
	return expression.NewBuilder().WithFilter(filt).Build()
}

func (s *DynamoStore) CountUsers(ctx context.Context, activeOnly bool) (int, error) {
	in := &dynamodb.ScanInput{
		TableName: aws.String(s.cfg.UsersTable),
		Select:    types.SelectCount,
	}
	if activeOnly {
		expr, err := activeFilter()
		if err != nil {
			return 0, fmt.Errorf("build filter: %w", err)
		}
		in.FilterExpression = expr.Filter()
		in.ExpressionAttributeNames = expr.Names()
		in.ExpressionAttributeValues = expr.Values()
	}

	total := 0
	p := dynamodb.NewScanPaginator(s.api, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("count users: %w", err)
		}
		total += int(page.Count)
	}
	return total, nil
}

// SumActiveSessions adds up activeSessions over currently active users.
func (s *DynamoStore) SumActiveSessions(ctx context.Context) (int, error) {
	filt := expression.Name("isCurrentlyActive").Equal(expression.Value(true))
	proj := expression.NamesList(expression.Name("activeSessions"))
	expr, err := expression.NewBuilder().WithFilter(filt).WithProjection(proj).Build()
	if err != nil {
		return 0, fmt.Errorf("build filter: %w", err)
	}

	sum := 0
	p := dynamodb.NewScanPaginator(s.api, &dynamodb.ScanInput{
		TableName:                 aws.String(s.cfg.UsersTable),
		FilterExpression:          expr.Filter(),
		ProjectionExpression:      expr.Projection(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("sum active sessions: %w", err)
		}
		for _, item := range page.Items {
			var rec struct {
				ActiveSessions int `dynamodbav:"activeSessions"`
			}
			if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
				s.logger.Warn("skipping unreadable activeSessions", map[string]interface{}{"error": err})
				continue
			}
			sum += rec.ActiveSessions
		}
	}
	return sum, nil
}

func (s *DynamoStore) PutProcessedFile(ctx context.Context, f models.ProcessedFile) error {
	item, err := attributevalue.MarshalMap(fromFile(f))
	if err != nil {
		return fmt.Errorf("marshal file: %w", err)
	}
	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.cfg.ProcessedFilesTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put file: %w", err)
	}
	return nil
}

// ListProcessedFiles reads one scan page of at most limit records. DynamoDB
// scans are unordered, so this is a sample rather than the newest files; the
// page is sorted newest first before returning.
func (s *DynamoStore) ListProcessedFiles(ctx context.Context, limit int) ([]models.ProcessedFile, error) {
	in := &dynamodb.ScanInput{TableName: aws.String(s.cfg.ProcessedFilesTable)}
	if limit > 0 {
		in.Limit = aws.Int32(int32(limit))
	}
	out, err := s.api.Scan(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("scan files: %w", err)
	}

	files := make([]models.ProcessedFile, 0, len(out.Items))
	for _, item := range out.Items {
		f, err := decodeFile(item)
		if err != nil {
			s.logger.Warn("skipping unreadable file record", map[string]interface{}{"fileId": f.FileID, "error": err})
			continue
		}
		files = append(files, f)
	}
	sortNewestFirst(files)
	return files, nil
}

func (s *DynamoStore) ScanProcessedFiles(ctx context.Context, fn store.FileVisitor) error {
	p := dynamodb.NewScanPaginator(s.api, &dynamodb.ScanInput{
		TableName: aws.String(s.cfg.ProcessedFilesTable),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("scan files: %w", err)
		}
		for _, item := range page.Items {
			f, decodeErr := decodeFile(item)
			if err := fn(f, decodeErr); err != nil {
				return err
			}
		}
	}
	return nil
}

func decodeUser(item map[string]types.AttributeValue) (*models.User, error) {
	var rec userRecord
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		u := &models.User{}
		if v, ok := item["userId"].(*types.AttributeValueMemberS); ok {
			u.UserID = v.Value
		}
		return u, fmt.Errorf("%w: %v", store.ErrMalformedRecord, err)
	}
	return toUser(rec)
}

func decodeFile(item map[string]types.AttributeValue) (models.ProcessedFile, error) {
	var rec fileRecord
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		f := models.ProcessedFile{}
		if v, ok := item["fileId"].(*types.AttributeValueMemberS); ok {
			f.FileID = v.Value
		}
		return f, fmt.Errorf("%w: %v", store.ErrMalformedRecord, err)
	}
	return toFile(rec)
}

// sortNewestFirst orders by processedAt descending; records without a
// timestamp go last.
func sortNewestFirst(files []models.ProcessedFile) {
	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i].ProcessedAt, files[j].ProcessedAt
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.After(*b)
	})
}
