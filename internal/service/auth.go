package service

import (
	"context"
	"fmt"
	"strings"

	"taskboard/internal/domain/errors"
	"taskboard/internal/domain/models"
	"taskboard/internal/domain/repository"
	"taskboard/internal/notify"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	// bcrypt rejects longer input; the limit is in bytes, not characters.
	maxPasswordBytes = 72
)

// AuthService guards user credentials: signup verification, login, password changes and
// the one-time codes that gate them.
type AuthService struct {
	users    repository.UserRepository
	notifier Dispatcher
	clock    Clock
	newCode  func() (string, error)
}

func NewAuthService(users repository.UserRepository, notifier Dispatcher, clock Clock) *AuthService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &AuthService{
		users:    users,
		notifier: notifier,
		clock:    clock,
		newCode:  generateOTP,
	}
}

// Signup creates an unverified user and mails a signup code.
func (s *AuthService) Signup(ctx context.Context, req models.SignupRequest) (*models.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	existing, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, errors.Conflict("email already exists")
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user := &models.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	code, err := s.issueOTP(user, models.PurposeSignup, SignupOTPTTL)
	if err != nil {
		return nil, err
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.send(user.Email, "Verify your email - OTP",
		fmt.Sprintf("Your profile was created successfully! OTP: %s. OTP will expire in 2 minutes. Please verify to continue.", code))
	return user, nil
}

// ResendOTP issues a new signup code to an unverified user.
func (s *AuthService) ResendOTP(ctx context.Context, req models.EmailRequest) error {
	req.Email = normalizeEmail(req.Email)
	if err := validateRequest(req); err != nil {
		return err
	}
	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return errors.NotFound("user not found")
		}
		return err
	}
	if user.IsVerified {
		return errors.Validation("email already verified")
	}

	code, err := s.issueOTP(user, models.PurposeSignup, SignupOTPTTL)
	if err != nil {
		return err
	}
	user.UpdatedAt = s.clock.Now()
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return err
	}
	s.send(user.Email, "Your New OTP Code", fmt.Sprintf("Your new OTP is %s. It expires in 2 minutes.", code))
	return nil
}

// RequestPasswordReset mails a reset code when the account exists. An unknown email is
// not an error so callers cannot probe for accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, req models.EmailRequest) error {
	req.Email = normalizeEmail(req.Email)
	if err := validateRequest(req); err != nil {
		return err
	}
	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil
		}
		return err
	}

	code, err := s.issueOTP(user, models.PurposeReset, ResetOTPTTL)
	if err != nil {
		return err
	}
	user.UpdatedAt = s.clock.Now()
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return err
	}
	s.send(user.Email, "Password Reset OTP", fmt.Sprintf("Your OTP is %s. It expires in 10 minutes.", code))
	return nil
}

// RequestStepUpOTP mails a code that authorizes a password change by a logged-in user.
func (s *AuthService) RequestStepUpOTP(ctx context.Context, callerID string) error {
	user, err := s.users.GetUserByID(ctx, callerID)
	if err != nil {
		return err
	}
	code, err := s.issueOTP(user, models.PurposeStepUp, ResetOTPTTL)
	if err != nil {
		return err
	}
	user.UpdatedAt = s.clock.Now()
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return err
	}
	s.send(user.Email, "OTP for Password Reset",
		fmt.Sprintf("Your OTP for password reset is %s. It expires in 10 minutes.", code))
	return nil
}

// VerifyOTP consumes a signup code and marks the user verified. Any failure leaves the
// stored code in place.
func (s *AuthService) VerifyOTP(ctx context.Context, req models.VerifyOTPRequest) (*models.User, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.New(errors.ErrInvalidOTP, "invalid or expired otp")
		}
		return nil, err
	}
	if !checkOTP(user, models.PurposeSignup, req.OTP, s.clock.Now()) {
		return nil, errors.New(errors.ErrInvalidOTP, "invalid or expired otp")
	}

	user.ClearOTP()
	user.IsVerified = true
	user.UpdatedAt = s.clock.Now()
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks the verified flag before the password so an unverified account never
// reveals whether the password matched.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.User, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.New(errors.ErrAuthFailed, "invalid credentials")
		}
		return nil, err
	}
	if !user.IsVerified {
		return nil, errors.New(errors.ErrEmailNotVerified, "email not verified, please verify the otp sent to your email")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, errors.New(errors.ErrAuthFailed, "invalid credentials")
	}
	return user, nil
}

// ChangePassword is the direct variant: old password only, verified accounts only.
func (s *AuthService) ChangePassword(ctx context.Context, callerID string, req models.ChangePasswordRequest) error {
	if err := validateRequest(req); err != nil {
		return err
	}
	user, err := s.users.GetUserByID(ctx, callerID)
	if err != nil {
		return err
	}
	if !user.IsVerified {
		return errors.New(errors.ErrEmailNotVerified, "password change is only allowed after email verification")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)) != nil {
		return errors.New(errors.ErrAuthFailed, "old password is incorrect")
	}
	if err := s.setPassword(ctx, user, req.NewPassword); err != nil {
		return err
	}
	s.send(user.Email, "Password Changed Successfully",
		fmt.Sprintf("Hello %s,\n\nYour password has been successfully changed. If you did not perform this action, please contact support immediately.", user.Name))
	return nil
}

// ChangePasswordWithOTP is the step-up variant: a valid step-up code plus the old password.
func (s *AuthService) ChangePasswordWithOTP(ctx context.Context, callerID string, req models.ChangePasswordOTPRequest) error {
	if err := validateRequest(req); err != nil {
		return err
	}
	user, err := s.users.GetUserByID(ctx, callerID)
	if err != nil {
		return err
	}
	if !checkOTP(user, models.PurposeStepUp, req.OTP, s.clock.Now()) {
		return errors.New(errors.ErrInvalidOTP, "invalid or expired otp")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)) != nil {
		return errors.New(errors.ErrAuthFailed, "old password is incorrect")
	}
	if err := s.setPassword(ctx, user, req.NewPassword); err != nil {
		return err
	}
	s.send(user.Email, "Password Changed Successfully",
		fmt.Sprintf("Hello %s,\n\nYour password has been changed successfully. If you did not perform this action, please contact support immediately.", user.Name))
	return nil
}

// ResetPasswordWithOTP completes the forgot-password flow with a reset code.
func (s *AuthService) ResetPasswordWithOTP(ctx context.Context, req models.ResetPasswordForgotRequest) error {
	req.Email = normalizeEmail(req.Email)
	if err := validateRequest(req); err != nil {
		return err
	}
	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return errors.New(errors.ErrInvalidOTP, "invalid email or otp")
		}
		return err
	}
	if !checkOTP(user, models.PurposeReset, req.OTP, s.clock.Now()) {
		return errors.New(errors.ErrInvalidOTP, "invalid email or otp")
	}
	if err := s.setPassword(ctx, user, req.NewPassword); err != nil {
		return err
	}
	s.send(user.Email, "Password Reset Successfully",
		fmt.Sprintf("Hello %s,\n\nYour password has been reset successfully using OTP verification. If you did not perform this action, please contact support immediately.", user.Name))
	return nil
}

// UpdateProfile changes the caller's name and/or email and mails a summary of the change.
func (s *AuthService) UpdateProfile(ctx context.Context, callerID string, req models.UpdateProfileRequest) (*models.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByID(ctx, callerID)
	if err != nil {
		return nil, err
	}

	var changes []string
	if req.Name != "" && req.Name != user.Name {
		user.Name = req.Name
		changes = append(changes, "Name updated")
	}
	if req.Email != "" && req.Email != user.Email {
		other, err := s.users.GetUserByEmail(ctx, req.Email)
		if err != nil && !errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
		if other != nil && other.ID != user.ID {
			return nil, errors.Conflict("email already exists")
		}
		user.Email = req.Email
		changes = append(changes, "Email updated")
	}
	if len(changes) == 0 {
		return user, nil
	}

	user.UpdatedAt = s.clock.Now()
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	s.send(user.Email, "Profile Updated Successfully",
		fmt.Sprintf("Hello %s,\n\n%s for your profile.\nIf you did not perform this update, please contact support immediately.", user.Name, strings.Join(changes, " and ")))
	return user, nil
}

// ListUsers is the assignee directory.
func (s *AuthService) ListUsers(ctx context.Context, callerID string) ([]models.UserSummary, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, models.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email})
	}
	return out, nil
}

func (s *AuthService) GetUser(ctx context.Context, callerID string) (*models.User, error) {
	return s.users.GetUserByID(ctx, callerID)
}

// setPassword stores a new hash and drops any outstanding code.
func (s *AuthService) setPassword(ctx context.Context, user *models.User, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.ClearOTP()
	user.UpdatedAt = s.clock.Now()
	return s.users.UpdateUser(ctx, user)
}

func (s *AuthService) send(to, subject, body string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Dispatch(notify.Message{To: to, Subject: subject, Body: body})
}

func hashPassword(password string) (string, error) {
	if len(password) < minPasswordLength || len(password) > maxPasswordBytes {
		return "", errors.Validation("password must be between 6 and 72 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", errors.Validation("password must be between 6 and 72 characters")
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
