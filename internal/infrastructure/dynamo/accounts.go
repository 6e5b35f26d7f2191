package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-accounts-nosql/internal/domain"
	"github.com/go-accounts-nosql/internal/pkg/id"
)

// emailLock reserves an email for one account. It lives in its own table so
// uniqueness can be enforced with a conditional put inside a transaction,
// which a GSI cannot do.
type emailLock struct {
	Email     string `dynamodbav:"email"`
	AccountID string `dynamodbav:"account_id"`
}

// AccountRepo provides typed DynamoDB operations for the accounts table.
type AccountRepo struct {
	client      API
	tableName   string
	emailsTable string
}

func NewAccountRepo(client API, tableName, emailsTable string) *AccountRepo {
	return &AccountRepo{client: client, tableName: tableName, emailsTable: emailsTable}
}

// Create stores a new disabled account. It fails with domain.ErrConflict when
// the email is already reserved, including when two registrations race.
func (r *AccountRepo) Create(ctx context.Context, email, passwordHash string) (*domain.Account, error) {
	now := time.Now().UTC()
	a := &domain.Account{
		AccountID:    id.New(),
		Email:        domain.NormalizeEmail(email),
		PasswordHash: passwordHash,
		IsEnabled:    false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return nil, fmt.Errorf("marshal account: %w", err)
	}
	lock, err := attributevalue.MarshalMap(emailLock{Email: a.Email, AccountID: a.AccountID})
	if err != nil {
		return nil, fmt.Errorf("marshal email lock: %w", err)
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.emailsTable),
				Item:                lock,
				ConditionExpression: aws.String("attribute_not_exists(email)"),
			}},
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(account_id)"),
			}},
		},
	})
	if len(txConditionFailed(err)) > 0 {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AccountRepo) FindByID(ctx context.Context, accountID string) (*domain.Account, error) {
	if !id.Valid(accountID) {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldAccountID, accountID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	var a domain.Account
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.emailsTable),
		Key:            strKey(fieldEmail, domain.NormalizeEmail(email)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	var lock emailLock
	if err := attributevalue.UnmarshalMap(out.Item, &lock); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, lock.AccountID)
}

// SetEnabled marks the account owning email as verified. Enabling an already
// enabled account writes nothing and returns it unchanged.
func (r *AccountRepo) SetEnabled(ctx context.Context, email string) (*domain.Account, error) {
	a, err := r.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if a.IsEnabled {
		return a, nil
	}
	item, err := r.update(ctx, a.AccountID, map[string]interface{}{fieldIsEnabled: true})
	if err != nil {
		return nil, err
	}
	var updated domain.Account
	if err := attributevalue.UnmarshalMap(item, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// UpdateProfile writes only the supplied fields and returns the resulting profile.
// An email change moves the email lock in the same transaction as the account update.
func (r *AccountRepo) UpdateProfile(ctx context.Context, accountID string, upd domain.ProfileUpdate) (*domain.Profile, error) {
	current, err := r.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if upd.FirstName != nil {
		updates[fieldFirstName] = *upd.FirstName
	}
	if upd.LastName != nil {
		updates[fieldLastName] = *upd.LastName
	}
	newEmail := ""
	if upd.Email != nil {
		e := domain.NormalizeEmail(*upd.Email)
		if e == "" {
			return nil, fmt.Errorf("email must not be empty: %w", domain.ErrBadRequest)
		}
		if e != current.Email {
			newEmail = e
			updates[fieldEmail] = e
		}
	}
	if len(updates) == 0 {
		return current.Profile(), nil
	}

	if newEmail != "" {
		if err := r.moveEmail(ctx, current, newEmail, updates); err != nil {
			return nil, err
		}
		a, err := r.FindByID(ctx, accountID)
		if err != nil {
			return nil, err
		}
		return a.Profile(), nil
	}

	item, err := r.update(ctx, accountID, updates)
	if err != nil {
		return nil, err
	}
	var a domain.Account
	if err := attributevalue.UnmarshalMap(item, &a); err != nil {
		return nil, err
	}
	return a.Profile(), nil
}

func (r *AccountRepo) UpdatePassword(ctx context.Context, accountID, passwordHash string) error {
	_, err := r.update(ctx, accountID, map[string]interface{}{fieldPasswordHash: passwordHash})
	return err
}

// update applies a SET to an existing account and returns the item after the write.
func (r *AccountRepo) update(ctx context.Context, accountID string, updates map[string]interface{}) (map[string]types.AttributeValue, error) {
	updates[fieldUpdatedAt] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return nil, err
	}
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldAccountID, accountID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(account_id)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if isConditionFailed(err) {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return out.Attributes, nil
}

func (r *AccountRepo) moveEmail(ctx context.Context, current *domain.Account, newEmail string, updates map[string]interface{}) error {
	updates[fieldUpdatedAt] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	// The account update is guarded on the email it had when read, so a
	// concurrent email change cancels this transaction instead of orphaning a lock.
	ue.Names["#cur"] = fieldEmail
	ue.Values[":cur"] = &types.AttributeValueMemberS{Value: current.Email}

	newLock, err := attributevalue.MarshalMap(emailLock{Email: newEmail, AccountID: current.AccountID})
	if err != nil {
		return fmt.Errorf("marshal email lock: %w", err)
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: &types.Delete{
				TableName:           aws.String(r.emailsTable),
				Key:                 strKey(fieldEmail, current.Email),
				ConditionExpression: aws.String("account_id = :aid"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":aid": &types.AttributeValueMemberS{Value: current.AccountID},
				},
			}},
			{Put: &types.Put{
				TableName:           aws.String(r.emailsTable),
				Item:                newLock,
				ConditionExpression: aws.String("attribute_not_exists(email)"),
			}},
			{Update: &types.Update{
				TableName:                 aws.String(r.tableName),
				Key:                       strKey(fieldAccountID, current.AccountID),
				UpdateExpression:          aws.String(ue.Expr),
				ConditionExpression:       aws.String("attribute_exists(account_id) AND #cur = :cur"),
				ExpressionAttributeNames:  ue.Names,
				ExpressionAttributeValues: ue.Values,
			}},
		},
	})
	if failed := txConditionFailed(err); len(failed) > 0 {
		for _, i := range failed {
			if i == 1 {
				return fmt.Errorf("email already registered: %w", domain.ErrConflict)
			}
		}
		return fmt.Errorf("account changed concurrently: %w", domain.ErrConflict)
	}
	return err
}
