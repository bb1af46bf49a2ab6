package usecase_test

import (
	"context"
	"testing"

	"petstore/internal/domain/model"
	repo "petstore/internal/repository"
	"petstore/internal/usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

var testSecret = []byte("test_secret")

func TestAuthUsecase_Register_InvalidEmail(t *testing.T) {
	users := new(UserRepoMock)
	uc := usecase.NewAuthUsecase(users, testSecret)

	_, err := uc.Register(context.Background(), usecase.RegisterInput{
		Email: "not-an-email", Name: "x", Password: "password123",
	})
	assertErrContains(t, err, "invalid email")
}

func TestAuthUsecase_Register_ShortPassword(t *testing.T) {
	users := new(UserRepoMock)
	uc := usecase.NewAuthUsecase(users, testSecret)

	_, err := uc.Register(context.Background(), usecase.RegisterInput{
		Email: "a@example.com", Name: "x", Password: "short",
	})
	assertErrContains(t, err, "at least 8 characters")
}

func TestAuthUsecase_Register_DuplicateEmail(t *testing.T) {
	users := new(UserRepoMock)

	users.On("FindByEmail", mock.Anything, "taken@example.com").Return(&model.User{
		ID: 1, Email: "taken@example.com",
	}, nil)

	uc := usecase.NewAuthUsecase(users, testSecret)

	_, err := uc.Register(context.Background(), usecase.RegisterInput{
		Email: "Taken@Example.com", Name: "x", Password: "password123",
	})
	assertErrContains(t, err, "email already used")

	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// 登録成功：USERロールで作成され、発行されたJWTのclaimsが正しい
func TestAuthUsecase_Register_Success_IssuesToken(t *testing.T) {
	users := new(UserRepoMock)

	users.On("FindByEmail", mock.Anything, "new@example.com").Return(nil, repo.ErrNotFound)
	users.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		// パスワードは平文で保存しない
		return u.Email == "new@example.com" &&
			u.Role == model.RoleUser &&
			u.PasswordHash != "" &&
			u.PasswordHash != "password123"
	})).Run(func(args mock.Arguments) {
		u := args.Get(1).(*model.User)
		u.ID = 42
	}).Return(nil)

	uc := usecase.NewAuthUsecase(users, testSecret)

	out, err := uc.Register(context.Background(), usecase.RegisterInput{
		Email: "New@Example.com ", Name: "New User", Password: "password123",
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(42), out.User.ID)
	assert.Equal(t, "USER", out.User.Role)
	assert.NotEmpty(t, out.Token)

	tok, err := jwt.Parse(out.Token, func(t *jwt.Token) (interface{}, error) {
		return testSecret, nil
	})
	assert.NoError(t, err)
	claims := tok.Claims.(jwt.MapClaims)
	assert.Equal(t, "42", claims["sub"])
	assert.Equal(t, "USER", claims["role"])
}

func TestAuthUsecase_Login_UnknownEmail(t *testing.T) {
	users := new(UserRepoMock)
	users.On("FindByEmail", mock.Anything, "nobody@example.com").Return(nil, repo.ErrNotFound)

	uc := usecase.NewAuthUsecase(users, testSecret)

	_, err := uc.Login(context.Background(), usecase.LoginInput{
		Email: "nobody@example.com", Password: "password123",
	})
	assertErrContains(t, err, "invalid email or password")
}

func TestAuthUsecase_Login_WrongPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.MinCost)

	users := new(UserRepoMock)
	users.On("FindByEmail", mock.Anything, "a@example.com").Return(&model.User{
		ID: 1, Email: "a@example.com", PasswordHash: string(hash), IsActive: true,
	}, nil)

	uc := usecase.NewAuthUsecase(users, testSecret)

	_, err := uc.Login(context.Background(), usecase.LoginInput{
		Email: "a@example.com", Password: "wrong-password",
	})
	assertErrContains(t, err, "invalid email or password")
}

func TestAuthUsecase_Login_InactiveUser(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)

	users := new(UserRepoMock)
	users.On("FindByEmail", mock.Anything, "a@example.com").Return(&model.User{
		ID: 1, Email: "a@example.com", PasswordHash: string(hash), IsActive: false,
	}, nil)

	uc := usecase.NewAuthUsecase(users, testSecret)

	_, err := uc.Login(context.Background(), usecase.LoginInput{
		Email: "a@example.com", Password: "password123",
	})
	assertErrContains(t, err, "invalid email or password")
}

func TestAuthUsecase_Login_Success_UpdatesLastLogin(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)

	users := new(UserRepoMock)
	users.On("FindByEmail", mock.Anything, "a@example.com").Return(&model.User{
		ID: 7, Email: "a@example.com", Name: "A", Role: model.RoleAdmin,
		PasswordHash: string(hash), IsActive: true,
	}, nil)
	users.On("Update", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.ID == int64(7) && u.LastLoginAt != nil
	})).Return(nil)

	uc := usecase.NewAuthUsecase(users, testSecret)

	out, err := uc.Login(context.Background(), usecase.LoginInput{
		Email: "a@example.com", Password: "password123",
	})
	assert.NoError(t, err)
	assert.Equal(t, "ADMIN", out.User.Role)
	assert.NotEmpty(t, out.Token)

	users.AssertExpectations(t)
}

func TestAuthUsecase_Me_NotFound(t *testing.T) {
	users := new(UserRepoMock)
	users.On("FindByID", mock.Anything, int64(9)).Return(nil, repo.ErrNotFound)

	uc := usecase.NewAuthUsecase(users, testSecret)

	_, err := uc.Me(context.Background(), 9)
	assertErrContains(t, err, "not found")
}
