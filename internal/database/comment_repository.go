package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pscheid92/taskhub/internal/domain"
)

type CommentRepo struct {
	pool *pgxpool.Pool
}

func NewCommentRepo(pool *pgxpool.Pool) *CommentRepo {
	return &CommentRepo{pool: pool}
}

func (r *CommentRepo) Create(ctx context.Context, comment *domain.Comment) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO comments (task_id, author_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, comment.TaskID, comment.AuthorID, comment.Content,
	).Scan(&comment.ID, &comment.CreatedAt, &comment.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

func (r *CommentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Comment, error) {
	var comment domain.Comment
	err := r.pool.QueryRow(ctx, `
		SELECT id, task_id, author_id, content, deleted, created_at, updated_at
		FROM comments
		WHERE id = $1 AND deleted = FALSE
	`, id).Scan(
		&comment.ID, &comment.TaskID, &comment.AuthorID, &comment.Content,
		&comment.Deleted, &comment.CreatedAt, &comment.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return &comment, nil
}

func (r *CommentRepo) Update(ctx context.Context, comment *domain.Comment) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE comments
		SET content = $1, updated_at = NOW()
		WHERE id = $2 AND deleted = FALSE
		RETURNING updated_at
	`, comment.Content, comment.ID).Scan(&comment.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrCommentNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update comment: %w", err)
	}
	return nil
}

func (r *CommentRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE comments
		SET deleted = TRUE, updated_at = NOW()
		WHERE id = $1 AND deleted = FALSE
	`, id)

	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCommentNotFound
	}
	return nil
}

func (r *CommentRepo) ListByTask(ctx context.Context, taskID uuid.UUID) ([]domain.Comment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, task_id, author_id, content, deleted, created_at, updated_at
		FROM comments
		WHERE task_id = $1 AND deleted = FALSE
		ORDER BY created_at
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []domain.Comment
	for rows.Next() {
		var comment domain.Comment
		if err := rows.Scan(
			&comment.ID, &comment.TaskID, &comment.AuthorID, &comment.Content,
			&comment.Deleted, &comment.CreatedAt, &comment.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read comments: %w", err)
	}
	return comments, nil
}
