package db

import (
	"context"
	"strconv"
	"strings"
	"time"

	"taskboard/internal/domain/errors"
	"taskboard/internal/domain/models"
	"taskboard/internal/domain/repository"
	"taskboard/internal/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const queryTimeout = 15 * time.Second

const uniqueViolation = "23505"

const (
	userColumns = `id, name, email, password_hash, is_verified,
		COALESCE(otp, ''), otp_expiry, COALESCE(otp_purpose, ''), created_at, updated_at`

	taskColumns = `t.id, t.title, t.created_by, t.assigned_to, t.status, t.deadline, t.created_at, t.updated_at,
		ARRAY(SELECT s.id FROM subtasks s WHERE s.task_id = t.id ORDER BY s.seq) AS subtask_ids`

	subTaskColumns = `id, task_id, title, status, deadline, created_at, updated_at`
)

const (
	createUserSQL = `INSERT INTO users (id, name, email, password_hash, is_verified, otp, otp_expiry, otp_purpose, created_at, updated_at)
		VALUES ($1, $2, lower($3), $4, $5, NULLIF($6, ''), $7, NULLIF($8, ''), $9, $10)`
	getUserByIDSQL    = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	getUserByEmailSQL = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	updateUserSQL     = `UPDATE users SET name = $2, email = lower($3), password_hash = $4, is_verified = $5,
		otp = NULLIF($6, ''), otp_expiry = $7, otp_purpose = NULLIF($8, ''), updated_at = $9 WHERE id = $1`
	listUsersSQL = `SELECT ` + userColumns + ` FROM users ORDER BY name, id`

	createTaskSQL = `INSERT INTO tasks (id, title, created_by, assigned_to, status, deadline, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	getTaskSQL     = `SELECT ` + taskColumns + ` FROM tasks t WHERE t.id = $1`
	lockTaskSQL    = `SELECT id FROM tasks WHERE id = $1 FOR UPDATE`
	updateTaskSQL  = `UPDATE tasks SET title = $2, status = $3, deadline = $4, updated_at = $5 WHERE id = $1`
	deleteTaskSQL  = `DELETE FROM tasks WHERE id = $1`
	taskExistsSQL  = `SELECT EXISTS(SELECT 1 FROM tasks WHERE id = $1)`
	listTasksOrder = ` ORDER BY t.deadline, t.created_at, t.id`

	createSubTaskSQL = `INSERT INTO subtasks (id, task_id, title, status, deadline, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	getSubTaskSQL     = `SELECT ` + subTaskColumns + ` FROM subtasks WHERE id = $1`
	getTaskSubTaskSQL = `SELECT ` + subTaskColumns + ` FROM subtasks WHERE id = $1 AND task_id = $2`
	listSubTasksSQL   = `SELECT ` + subTaskColumns + ` FROM subtasks WHERE task_id = $1 ORDER BY seq`
	updateSubTaskSQL  = `UPDATE subtasks SET title = $3, status = $4, deadline = $5, updated_at = $6 WHERE id = $1 AND task_id = $2`
	deleteSubTaskSQL  = `DELETE FROM subtasks WHERE id = $1 AND task_id = $2`
)

// Storage is the PostgreSQL implementation of the user and task repositories.
type Storage struct {
	pool *pgxpool.Pool
}

var (
	_ repository.UserRepository = (*Storage)(nil)
	_ repository.TaskStore      = (*Storage)(nil)
)

func NewStorage(ctx context.Context, connStr string) (*Storage, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		logger.Error("failed to ping database", "error", err)
		return nil, err
	}

	logger.Info("database connected")
	return &Storage{pool: pool}, nil
}

func (s *Storage) Close() {
	s.pool.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var purpose string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsVerified,
		&u.OTP, &u.OTPExpiry, &purpose, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.OTPPurpose = models.OTPPurpose(purpose)
	return &u, nil
}

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	var status string
	if err := row.Scan(&t.ID, &t.Title, &t.CreatedBy, &t.AssignedTo, &status, &t.Deadline,
		&t.CreatedAt, &t.UpdatedAt, &t.SubTaskIDs); err != nil {
		return nil, err
	}
	t.Status = models.Status(status)
	if t.SubTaskIDs == nil {
		t.SubTaskIDs = []string{}
	}
	return &t, nil
}

func scanSubTask(row rowScanner) (*models.SubTask, error) {
	var st models.SubTask
	var status string
	if err := row.Scan(&st.ID, &st.TaskID, &st.Title, &status, &st.Deadline, &st.CreatedAt, &st.UpdatedAt); err != nil {
		return nil, err
	}
	st.Status = models.Status(status)
	return &st, nil
}

func collectSubTasks(rows pgx.Rows) ([]models.SubTask, error) {
	defer rows.Close()
	subs := []models.SubTask{}
	for rows.Next() {
		st, err := scanSubTask(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *st)
	}
	return subs, rows.Err()
}

// translate maps driver errors onto domain error kinds.
func translate(err error, notFound, conflict string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return errors.NotFound(notFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return errors.Conflict(conflict)
	}
	return err
}

func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx, createUserSQL, user.ID, user.Name, user.Email, user.PasswordHash, user.IsVerified,
		user.OTP, user.OTPExpiry, string(user.OTPPurpose), user.CreatedAt, user.UpdatedAt)
	if err != nil {
		err = translate(err, "user not found", "email already exists")
		if !errors.Is(err, errors.ErrConflict) {
			logger.Error("failed to create user", "user_id", user.ID, "error", err)
		}
		return err
	}
	user.Email = strings.ToLower(user.Email)
	return nil
}

func (s *Storage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	u, err := scanUser(s.pool.QueryRow(ctx, getUserByIDSQL, id))
	if err != nil {
		return nil, translate(err, "user not found", "")
	}
	return u, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	u, err := scanUser(s.pool.QueryRow(ctx, getUserByEmailSQL, email))
	if err != nil {
		return nil, translate(err, "user not found", "")
	}
	return u, nil
}

func (s *Storage) UpdateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ct, err := s.pool.Exec(ctx, updateUserSQL, user.ID, user.Name, user.Email, user.PasswordHash, user.IsVerified,
		user.OTP, user.OTPExpiry, string(user.OTPPurpose), user.UpdatedAt)
	if err != nil {
		return translate(err, "user not found", "email already exists")
	}
	if ct.RowsAffected() == 0 {
		return errors.NotFound("user not found")
	}
	user.Email = strings.ToLower(user.Email)
	return nil
}

func (s *Storage) ListUsers(ctx context.Context) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, listUsersSQL)
	if err != nil {
		logger.Error("failed to list users", "error", err)
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *Storage) CreateTask(ctx context.Context, task *models.Task) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx, createTaskSQL, task.ID, task.Title, task.CreatedBy, task.AssignedTo,
		string(task.Status), task.Deadline, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		logger.Error("failed to create task", "task_id", task.ID, "error", err)
		return translate(err, "task not found", "task already exists")
	}
	if task.SubTaskIDs == nil {
		task.SubTaskIDs = []string{}
	}
	return nil
}

func (s *Storage) GetTask(ctx context.Context, id string) (*models.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	t, err := scanTask(s.pool.QueryRow(ctx, getTaskSQL, id))
	if err != nil {
		return nil, translate(err, "task not found", "")
	}
	return t, nil
}

// buildListTasks renders q as a WHERE clause with positional arguments.
func buildListTasks(q models.TaskQuery) (string, []any) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}

	if q.AssignedTo != "" {
		add("t.assigned_to = ?", q.AssignedTo)
	}
	if q.CreatedBy != "" {
		add("t.created_by = ?", q.CreatedBy)
	}
	if q.Status != "" {
		add("t.status = ?", string(q.Status))
	}
	if q.DeadlineFrom != nil {
		add("t.deadline >= ?", *q.DeadlineFrom)
	}
	if q.DeadlineTo != nil {
		add("t.deadline <= ?", *q.DeadlineTo)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks t`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	return query + listTasksOrder, args
}

func (s *Storage) ListTasks(ctx context.Context, q models.TaskQuery) ([]models.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query, args := buildListTasks(q)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("failed to list tasks", "error", err)
		return nil, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *Storage) GetSubTask(ctx context.Context, id string) (*models.SubTask, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	st, err := scanSubTask(s.pool.QueryRow(ctx, getSubTaskSQL, id))
	if err != nil {
		return nil, translate(err, "sub-task not found", "")
	}
	return st, nil
}

func (s *Storage) ListSubTasks(ctx context.Context, taskID string) ([]models.SubTask, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var exists bool
	if err := s.pool.QueryRow(ctx, taskExistsSQL, taskID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.NotFound("task not found")
	}

	rows, err := s.pool.Query(ctx, listSubTasksSQL, taskID)
	if err != nil {
		return nil, err
	}
	return collectSubTasks(rows)
}

// WithTask locks the task row for the lifetime of a transaction. Concurrent units of
// work on the same task queue on the row lock and each sees the previous one's commit.
func (s *Storage) WithTask(ctx context.Context, taskID string, fn func(tx repository.TaskTx) error) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		logger.Error("failed to begin transaction", "task_id", taskID, "error", err)
		return err
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			logger.Warn("failed to roll back transaction", "task_id", taskID, "error", err)
		}
	}()

	var id string
	if err := tx.QueryRow(ctx, lockTaskSQL, taskID).Scan(&id); err != nil {
		return translate(err, "task not found", "")
	}

	if err := fn(&taskTx{tx: tx, taskID: id}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		logger.Error("failed to commit transaction", "task_id", taskID, "error", err)
		return err
	}
	return nil
}

type taskTx struct {
	tx     pgx.Tx
	taskID string
}

func (t *taskTx) Task(ctx context.Context) (*models.Task, error) {
	task, err := scanTask(t.tx.QueryRow(ctx, getTaskSQL, t.taskID))
	if err != nil {
		return nil, translate(err, "task not found", "")
	}
	return task, nil
}

func (t *taskTx) SubTasks(ctx context.Context) ([]models.SubTask, error) {
	rows, err := t.tx.Query(ctx, listSubTasksSQL, t.taskID)
	if err != nil {
		return nil, err
	}
	return collectSubTasks(rows)
}

func (t *taskTx) SubTask(ctx context.Context, id string) (*models.SubTask, error) {
	st, err := scanSubTask(t.tx.QueryRow(ctx, getTaskSubTaskSQL, id, t.taskID))
	if err != nil {
		return nil, translate(err, "sub-task not found", "")
	}
	return st, nil
}

func (t *taskTx) UpdateTask(ctx context.Context, task *models.Task) error {
	if task.ID != t.taskID {
		return errors.NotFound("task not found")
	}
	ct, err := t.tx.Exec(ctx, updateTaskSQL, task.ID, task.Title, string(task.Status), task.Deadline, task.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.NotFound("task not found")
	}
	return nil
}

func (t *taskTx) CreateSubTask(ctx context.Context, sub *models.SubTask) error {
	sub.TaskID = t.taskID
	_, err := t.tx.Exec(ctx, createSubTaskSQL, sub.ID, sub.TaskID, sub.Title, string(sub.Status),
		sub.Deadline, sub.CreatedAt, sub.UpdatedAt)
	return translate(err, "task not found", "sub-task already exists")
}

func (t *taskTx) UpdateSubTask(ctx context.Context, sub *models.SubTask) error {
	ct, err := t.tx.Exec(ctx, updateSubTaskSQL, sub.ID, t.taskID, sub.Title, string(sub.Status), sub.Deadline, sub.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.NotFound("sub-task not found")
	}
	return nil
}

func (t *taskTx) DeleteSubTask(ctx context.Context, id string) error {
	ct, err := t.tx.Exec(ctx, deleteSubTaskSQL, id, t.taskID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.NotFound("sub-task not found")
	}
	return nil
}

func (t *taskTx) DeleteTask(ctx context.Context) error {
	_, err := t.tx.Exec(ctx, deleteTaskSQL, t.taskID)
	return err
}
