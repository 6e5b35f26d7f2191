package dynamo

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-accounts-nosql/internal/domain"
	"github.com/go-accounts-nosql/internal/pkg/token"
	"github.com/sethvargo/go-retry"
)

// issueAttempts bounds how many fresh codes Issue generates when a generated
// code collides with one that is still stored.
const issueAttempts = 3

// CodeStore manages single-use verification and reset codes.
// PK: code. expires_at is the table's TTL attribute; because DynamoDB removes
// expired items lazily, reads also compare expires_at against the clock.
type CodeStore struct {
	client       API
	tableName    string
	codeLength   int
	replacePrior bool
	now          func() time.Time
}

// NewCodeStore returns a CodeStore. When replacePrior is true, issuing a code
// deletes every earlier code for the same email and purpose.
func NewCodeStore(client API, tableName string, codeLength int, replacePrior bool) *CodeStore {
	return &CodeStore{
		client:       client,
		tableName:    tableName,
		codeLength:   codeLength,
		replacePrior: replacePrior,
		now:          time.Now,
	}
}

// Issue stores a new code for email and purpose that expires after ttl.
func (s *CodeStore) Issue(ctx context.Context, email string, purpose domain.CodePurpose, ttl time.Duration) (string, error) {
	email = domain.NormalizeEmail(email)
	var issued string

	backoff := retry.WithMaxRetries(issueAttempts-1, retry.NewConstant(10*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		code, err := token.NewCode(s.codeLength)
		if err != nil {
			return err
		}
		err = s.put(ctx, &domain.VerificationCode{
			Code:         code,
			Email:        email,
			Purpose:      purpose,
			EmailPurpose: domain.EmailPurposeKey(email, purpose),
			ExpiresAt:    s.now().Add(ttl).Unix(),
		})
		if isConditionFailed(err) {
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		issued = code
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("issue %s code: %w", purpose, err)
	}

	if s.replacePrior {
		if err := s.deletePrior(ctx, email, purpose, issued); err != nil {
			slog.WarnContext(ctx, "could not invalidate earlier codes", "purpose", purpose, "err", err)
		}
	}
	return issued, nil
}

// Consume atomically deletes a live code issued for purpose and returns its email.
// The delete is conditional, so among concurrent callers presenting the same
// code at most one succeeds; the rest get domain.ErrNotFound. A code presented
// for the wrong purpose is left in place.
func (s *CodeStore) Consume(ctx context.Context, code string, purpose domain.CodePurpose) (string, error) {
	code = token.NormalizeCode(code)
	if code == "" {
		return "", fmt.Errorf("code not found: %w", domain.ErrNotFound)
	}
	out, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 strKey(fieldCode, code),
		ConditionExpression: aws.String("attribute_exists(#c) AND #p = :p AND #e > :now"),
		ExpressionAttributeNames: map[string]string{
			"#c": fieldCode,
			"#p": fieldPurpose,
			"#e": fieldExpiresAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":p":   &types.AttributeValueMemberS{Value: string(purpose)},
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(s.now().Unix(), 10)},
		},
		ReturnValues: types.ReturnValueAllOld,
	})
	if isConditionFailed(err) {
		return "", fmt.Errorf("code not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	var v domain.VerificationCode
	if err := attributevalue.UnmarshalMap(out.Attributes, &v); err != nil {
		return "", err
	}
	return v.Email, nil
}

func (s *CodeStore) put(ctx context.Context, v *domain.VerificationCode) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal verification code: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(s.tableName),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#c)"),
		ExpressionAttributeNames: map[string]string{"#c": fieldCode},
	})
	return err
}

// deletePrior removes codes for email+purpose other than keep. The GSI is
// eventually consistent, so a code issued a moment earlier may survive until its TTL.
func (s *CodeStore) deletePrior(ctx context.Context, email string, purpose domain.CodePurpose, keep string) error {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(indexEmailPurpose),
		KeyConditionExpression: aws.String("#k = :k"),
		ExpressionAttributeNames: map[string]string{
			"#k": fieldEmailPurpose,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":k": &types.AttributeValueMemberS{Value: domain.EmailPurposeKey(email, purpose)},
		},
	})
	if err != nil {
		return err
	}
	var prior []domain.VerificationCode
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &prior); err != nil {
		return err
	}
	for _, p := range prior {
		if p.Code == keep {
			continue
		}
		if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(s.tableName),
			Key:       strKey(fieldCode, p.Code),
		}); err != nil {
			return err
		}
	}
	return nil
}
