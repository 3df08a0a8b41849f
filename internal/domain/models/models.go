package models

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

// Toggle returns the opposite status.
func (s Status) Toggle() Status {
	if s == StatusCompleted {
		return StatusPending
	}
	return StatusCompleted
}

// OTPPurpose tags an outstanding one-time code with the flow that issued it.
type OTPPurpose string

const (
	PurposeSignup OTPPurpose = "signup"
	PurposeReset  OTPPurpose = "reset"
	PurposeStepUp OTPPurpose = "step_up"
)

type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	IsVerified   bool       `json:"isVerified"`
	OTP          string     `json:"-"`
	OTPExpiry    *time.Time `json:"-"`
	OTPPurpose   OTPPurpose `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// ClearOTP drops any outstanding code.
func (u *User) ClearOTP() {
	u.OTP = ""
	u.OTPExpiry = nil
	u.OTPPurpose = ""
}

// UserSummary is the public directory view of a user.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Task struct {
	ID         string    `json:"id"`
	Title      string    `json:"taskname"`
	CreatedBy  string    `json:"assignBy"`
	AssignedTo string    `json:"assignTo"`
	Status     Status    `json:"status"`
	Deadline   time.Time `json:"deadline"`
	SubTaskIDs []string  `json:"subTasks"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type SubTask struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task"`
	Title     string    `json:"title"`
	Status    Status    `json:"status"`
	Deadline  time.Time `json:"deadline"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TaskQuery selects tasks in storage. Zero fields are not filtered on.
type TaskQuery struct {
	AssignedTo   string
	CreatedBy    string
	Status       Status
	DeadlineFrom *time.Time
	DeadlineTo   *time.Time
}

type ToMeStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	Overdue   int `json:"overdue"`
}

type ByMeStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
}

type DashboardStats struct {
	TasksToMe ToMeStats `json:"tasksToMe"`
	TasksByMe ByMeStats `json:"tasksByMe"`
}

type SignupRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required"`
}

type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordForgotRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6,max=72"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6,max=72"`
}

type ChangePasswordOTPRequest struct {
	OTP         string `json:"otp" validate:"required"`
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6,max=72"`
}

type UpdateProfileRequest struct {
	Name  string `json:"name" validate:"omitempty,min=1,max=100"`
	Email string `json:"email" validate:"omitempty,email"`
}

type CreateTaskRequest struct {
	Title    string `json:"taskname" validate:"required,min=3,max=200"`
	AssignTo string `json:"assignTo" validate:"required"`
	Deadline string `json:"deadline" validate:"required"`
}

type UpdateTaskRequest struct {
	Title    string `json:"taskname" validate:"omitempty,min=3,max=200"`
	Deadline string `json:"deadline" validate:"omitempty"`
	Status   string `json:"status" validate:"omitempty,oneof=pending completed"`
}

type StatusRequest struct {
	Status string `json:"status" validate:"omitempty,oneof=pending completed"`
}

type CreateSubTaskRequest struct {
	Title    string `json:"title" validate:"required,min=3,max=200"`
	Deadline string `json:"deadline" validate:"required"`
}

type UpdateSubTaskRequest struct {
	Title    string `json:"title" validate:"omitempty,min=3,max=200"`
	Deadline string `json:"deadline" validate:"omitempty"`
	Status   string `json:"status" validate:"omitempty,oneof=pending completed"`
}

// TaskListFilter carries the optional list filters of the to-me and by-me views.
type TaskListFilter struct {
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
	Status    string `form:"status"`
}
