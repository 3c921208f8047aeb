package services

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"splitledger/internal/testutil"
)

func TestCreateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		user, err := svc.CreateUser(ctx, "alice@example.com", "password123", "Alice")
		testutil.AssertNoError(t, err)

		if user.ID == "" {
			t.Fatal("expected a generated user ID")
		}
		if user.Name != "Alice" {
			t.Errorf("expected name Alice, got %s", user.Name)
		}
		if !user.IsActive {
			t.Error("expected user to be active")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("password123")); err != nil {
			t.Error("password should be stored as a bcrypt hash")
		}
	})

	t.Run("duplicate_email", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, err := svc.CreateUser(ctx, "dup@example.com", "password123", "One")
		testutil.AssertNoError(t, err)

		_, err = svc.CreateUser(ctx, "DUP@example.com", "password456", "Two")
		testutil.AssertAppError(t, err, "DUPLICATE_EMAIL")
	})

	t.Run("missing_fields", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		for _, tc := range [][3]string{
			{"", "password123", "A"},
			{"a@example.com", "", "A"},
			{"a@example.com", "password123", " "},
		} {
			_, err := svc.CreateUser(ctx, tc[0], tc[1], tc[2])
			testutil.AssertAppError(t, err, "INVALID_INPUT")
		}
	})

	t.Run("email_normalized_to_lowercase", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		user, err := svc.CreateUser(ctx, "Alice@EXAMPLE.COM", "password123", "Alice")
		testutil.AssertNoError(t, err)

		if user.Email != "alice@example.com" {
			t.Errorf("expected lowercased email, got %s", user.Email)
		}
	})
}

func TestGetUser(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewUserService(db)

	created := testutil.CreateTestUserWithEmail(t, db, "found@example.com", "Found")

	t.Run("by_email", func(t *testing.T) {
		user, err := svc.GetUserByEmail(ctx, "Found@example.com")
		testutil.AssertNoError(t, err)
		if user.ID != created.ID {
			t.Errorf("expected user ID %s, got %s", created.ID, user.ID)
		}
	})

	t.Run("by_id", func(t *testing.T) {
		user, err := svc.GetUserByID(ctx, created.ID)
		testutil.AssertNoError(t, err)
		if user.Email != created.Email {
			t.Errorf("expected email %s, got %s", created.Email, user.Email)
		}
	})

	t.Run("not_found", func(t *testing.T) {
		_, err := svc.GetUserByEmail(ctx, "nonexistent@example.com")
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
		_, err = svc.GetUserByID(ctx, "01900000-0000-7000-8000-000000000000")
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})

	t.Run("inactive_user", func(t *testing.T) {
		inactive := testutil.CreateTestUserWithEmail(t, db, "inactive@example.com", "Gone")
		db.Model(inactive).Update("is_active", false)

		_, err := svc.GetUserByEmail(ctx, "inactive@example.com")
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})
}

func TestAttemptLogin(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewUserService(db)

	// fixture password is "password123"
	user := testutil.CreateTestUserWithEmail(t, db, "login@example.com", "Login")

	t.Run("success", func(t *testing.T) {
		got, err := svc.AttemptLogin(ctx, "login@example.com", "password123")
		testutil.AssertNoError(t, err)
		if got.ID != user.ID {
			t.Errorf("expected user %s, got %s", user.ID, got.ID)
		}
	})

	t.Run("wrong_password", func(t *testing.T) {
		_, err := svc.AttemptLogin(ctx, "login@example.com", "wrongpassword")
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
	})

	t.Run("unknown_email", func(t *testing.T) {
		_, err := svc.AttemptLogin(ctx, "nobody@example.com", "password123")
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
	})
}
