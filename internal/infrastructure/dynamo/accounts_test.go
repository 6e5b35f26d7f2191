package dynamo

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-accounts-nosql/internal/domain"
	"github.com/go-accounts-nosql/internal/pkg/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testAccountsTable = "accounts"
	testEmailsTable   = "account_emails"
)

func onTable(table string) interface{} {
	return mock.MatchedBy(func(in *dynamodb.GetItemInput) bool { return *in.TableName == table })
}

func mustItem(t *testing.T, v interface{}) map[string]types.AttributeValue {
	t.Helper()
	item, err := attributevalue.MarshalMap(v)
	require.NoError(t, err)
	return item
}

func setsField(names map[string]string, field string) bool {
	for _, n := range names {
		if n == field {
			return true
		}
	}
	return false
}

// expectAccount wires the two reads FindByEmail performs.
func expectAccount(t *testing.T, m *mockAPI, a *domain.Account) {
	m.On("GetItem", mock.Anything, onTable(testEmailsTable)).
		Return(&dynamodb.GetItemOutput{Item: mustItem(t, emailLock{Email: a.Email, AccountID: a.AccountID})}, nil)
	m.On("GetItem", mock.Anything, onTable(testAccountsTable)).
		Return(&dynamodb.GetItemOutput{Item: mustItem(t, a)}, nil)
}

func TestAccountRepo_Create_StoresDisabledAccountAndLock(t *testing.T) {
	m := new(mockAPI)
	repo := NewAccountRepo(m, testAccountsTable, testEmailsTable)

	m.On("TransactWriteItems", mock.Anything, mock.MatchedBy(func(in *dynamodb.TransactWriteItemsInput) bool {
		if len(in.TransactItems) != 2 {
			return false
		}
		lock := in.TransactItems[0].Put
		return lock != nil && *lock.TableName == testEmailsTable &&
			lock.Item[fieldEmail].(*types.AttributeValueMemberS).Value == "ada@example.com"
	})).Return(&dynamodb.TransactWriteItemsOutput{}, nil)

	a, err := repo.Create(context.Background(), "  Ada@Example.com ", "digest")
	require.NoError(t, err)
	assert.True(t, id.Valid(a.AccountID))
	assert.Equal(t, "ada@example.com", a.Email)
	assert.False(t, a.Verified())
	assert.Equal(t, "digest", a.PasswordHash)
	m.AssertExpectations(t)
}

func TestAccountRepo_Create_DuplicateEmail_Conflict(t *testing.T) {
	m := new(mockAPI)
	repo := NewAccountRepo(m, testAccountsTable, testEmailsTable)
	m.On("TransactWriteItems", mock.Anything, mock.Anything).Return(nil, txCancelled(2, 0))

	_, err := repo.Create(context.Background(), "ada@example.com", "digest")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestAccountRepo_FindByID_MalformedID_NotFoundWithoutRead(t *testing.T) {
	m := new(mockAPI)
	repo := NewAccountRepo(m, testAccountsTable, testEmailsTable)

	_, err := repo.FindByID(context.Background(), "not-an-id")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	m.AssertNotCalled(t, "GetItem", mock.Anything, mock.Anything)
}

func TestAccountRepo_FindByEmail_Unknown_NotFound(t *testing.T) {
	m := new(mockAPI)
	repo := NewAccountRepo(m, testAccountsTable, testEmailsTable)
	m.On("GetItem", mock.Anything, onTable(testEmailsTable)).Return(&dynamodb.GetItemOutput{}, nil)

	_, err := repo.FindByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAccountRepo_FindByEmail_FollowsLock(t *testing.T) {
	m := new(mockAPI)
	repo := NewAccountRepo(m, testAccountsTable, testEmailsTable)
	want := &domain.Account{AccountID: id.New(), Email: "ada@example.com", IsEnabled: true}
	expectAccount(t, m, want)

	got, err := repo.FindByEmail(context.Background(), "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, want.AccountID, got.AccountID)
	assert.True(t, got.Verified())
}

func TestAccountRepo_SetEnabled_AlreadyEnabled_NoWrite(t *testing.T) {
	m := new(mockAPI)
	repo := NewAccountRepo(m, testAccountsTable, testEmailsTable)
	expectAccount(t, m, &domain.Account{AccountID: id.New(), Email: "ada@example.com", IsEnabled: true})

	a, err := repo.SetEnabled(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.True(t, a.IsEnabled)
	m.AssertNotCalled(t, "UpdateItem", mock.Anything, mock.Anything)
}

func TestAccountRepo_SetEnabled_Disabled_Updates(t *testing.T) {
	m := new(mockAPI)
	repo := NewAccountRepo(m, testAccountsTable, testEmailsTable)
	a := &domain.Account{AccountID: id.New(), Email: "ada@example.com"}
	expectAccount(t, m, a)

	enabled := *a
	enabled.IsEnabled = true
	m.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		return setsField(in.ExpressionAttributeNames, fieldIsEnabled)
	})).Return(&dynamodb.UpdateItemOutput{Attributes: mustItem(t, &enabled)}, nil)

	got, err := repo.SetEnabled(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.True(t, got.IsEnabled)
	m.AssertExpectations(t)
}

func TestAccountRepo_UpdateProfile_NoChanges_ReturnsCurrent(t *testing.T) {
	m := new(mockAPI)
	repo := NewAccountRepo(m, testAccountsTable, testEmailsTable)
	a := &domain.Account{AccountID: id.New(), Email: "ada@example.com", FirstName: "Ada"}
	m.On("GetItem", mock.Anything, onTable(testAccountsTable)).Return(&dynamodb.GetItemOutput{Item: mustItem(t, a)}, nil)

	same := "ADA@example.com"
	p, err := repo.UpdateProfile(context.Background(), a.AccountID, domain.ProfileUpdate{Email: &same})
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.FirstName)
	m.AssertNotCalled(t, "UpdateItem", mock.Anything, mock.Anything)
	m.AssertNotCalled(t, "TransactWriteItems", mock.Anything, mock.Anything)
}

func TestAccountRepo_UpdateProfile_NamesOnly(t *testing.T) {
	m := new(mockAPI)
	repo := NewAccountRepo(m, testAccountsTable, testEmailsTable)
	a := &domain.Account{AccountID: id.New(), Email: "ada@example.com"}
	m.On("GetItem", mock.Anything, onTable(testAccountsTable)).Return(&dynamodb.GetItemOutput{Item: mustItem(t, a)}, nil)

	updated := *a
	updated.LastName = "Lovelace"
	m.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		return setsField(in.ExpressionAttributeNames, fieldLastName) &&
			!setsField(in.ExpressionAttributeNames, fieldFirstName)
	})).Return(&dynamodb.UpdateItemOutput{Attributes: mustItem(t, &updated)}, nil)

	last := "Lovelace"
	p, err := repo.UpdateProfile(context.Background(), a.AccountID, domain.ProfileUpdate{LastName: &last})
	require.NoError(t, err)
	assert.Equal(t, "Lovelace", p.LastName)
	assert.Equal(t, "ada@example.com", p.Email)
	m.AssertExpectations(t)
}

func TestAccountRepo_UpdateProfile_EmailTaken_Conflict(t *testing.T) {
	m := new(mockAPI)
	repo := NewAccountRepo(m, testAccountsTable, testEmailsTable)
	a := &domain.Account{AccountID: id.New(), Email: "ada@example.com"}
	m.On("GetItem", mock.Anything, onTable(testAccountsTable)).Return(&dynamodb.GetItemOutput{Item: mustItem(t, a)}, nil)
	m.On("TransactWriteItems", mock.Anything, mock.MatchedBy(func(in *dynamodb.TransactWriteItemsInput) bool {
		return len(in.TransactItems) == 3 && in.TransactItems[0].Delete != nil
	})).Return(nil, txCancelled(3, 1))

	taken := "grace@example.com"
	_, err := repo.UpdateProfile(context.Background(), a.AccountID, domain.ProfileUpdate{Email: &taken})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.ErrorContains(t, err, "email already registered")
}

func TestAccountRepo_UpdateProfile_BlankEmail_Rejected(t *testing.T) {
	m := new(mockAPI)
	repo := NewAccountRepo(m, testAccountsTable, testEmailsTable)
	a := &domain.Account{AccountID: id.New(), Email: "ada@example.com"}
	m.On("GetItem", mock.Anything, onTable(testAccountsTable)).Return(&dynamodb.GetItemOutput{Item: mustItem(t, a)}, nil)

	blank := "   "
	_, err := repo.UpdateProfile(context.Background(), a.AccountID, domain.ProfileUpdate{Email: &blank})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	m.AssertNotCalled(t, "UpdateItem", mock.Anything, mock.Anything)
	m.AssertNotCalled(t, "TransactWriteItems", mock.Anything, mock.Anything)
}

func TestAccountRepo_UpdatePassword_MissingAccount_NotFound(t *testing.T) {
	m := new(mockAPI)
	repo := NewAccountRepo(m, testAccountsTable, testEmailsTable)
	m.On("UpdateItem", mock.Anything, mock.Anything).Return(nil, conditionFailed())

	err := repo.UpdatePassword(context.Background(), id.New(), "digest")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
