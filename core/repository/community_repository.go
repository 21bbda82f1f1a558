package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"robot-training-hub/core/models"
)

// ListPosts returns posts newest first, joined with their author and model
func (s *PostgresStore) ListPosts(ctx context.Context) ([]*models.PostView, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.user_id, p.content, p.model_id, p.likes, p.comments, p.created_at,
			u.id, u.username, u.email, u.full_name, u.affiliation, u.avatar, u.created_at,
			m.id, m.user_id, m.name, m.description, m.model_type, m.accuracy, m.training_time, m.size,
			m.file_path, m.is_public, m.downloads, m.likes, m.created_at
		FROM community_posts p
		LEFT JOIN users u ON u.id = p.user_id
		LEFT JOIN models m ON m.id = p.model_id
		ORDER BY p.created_at DESC, p.id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []*models.PostView{}
	for rows.Next() {
		var view models.PostView
		var (
			userID                sql.NullInt64
			username, email, name sql.NullString
			affiliation, avatar   sql.NullString
			userCreated           sql.NullTime
			modelID, modelUserID  sql.NullInt64
			modelName, modelType  sql.NullString
			modelDesc, modelPath  sql.NullString
			accuracy              sql.NullFloat64
			trainingTime          sql.NullInt32
			size                  sql.NullInt64
			isPublic              sql.NullBool
			downloads, likes      sql.NullInt64
			modelCreated          sql.NullTime
		)
		err := rows.Scan(
			&view.ID, &view.UserID, &view.Content, &view.ModelID, &view.Likes, &view.Comments, &view.CreatedAt,
			&userID, &username, &email, &name, &affiliation, &avatar, &userCreated,
			&modelID, &modelUserID, &modelName, &modelDesc, &modelType, &accuracy, &trainingTime, &size,
			&modelPath, &isPublic, &downloads, &likes, &modelCreated,
		)
		if err != nil {
			return nil, err
		}

		if userID.Valid {
			view.User = &models.User{
				ID:        userID.Int64,
				Username:  username.String,
				Email:     email.String,
				FullName:  name.String,
				CreatedAt: userCreated.Time,
			}
			if affiliation.Valid {
				view.User.Affiliation = &affiliation.String
			}
			if avatar.Valid {
				view.User.Avatar = &avatar.String
			}
		}
		if modelID.Valid {
			m := &models.Model{
				ID:        modelID.Int64,
				UserID:    modelUserID.Int64,
				Name:      modelName.String,
				ModelType: modelType.String,
				IsPublic:  isPublic.Bool,
				Downloads: downloads.Int64,
				Likes:     likes.Int64,
				CreatedAt: modelCreated.Time,
			}
			if modelDesc.Valid {
				m.Description = &modelDesc.String
			}
			if accuracy.Valid {
				m.Accuracy = &accuracy.Float64
			}
			if trainingTime.Valid {
				t := int(trainingTime.Int32)
				m.TrainingTime = &t
			}
			if size.Valid {
				m.Size = &size.Int64
			}
			if modelPath.Valid {
				m.FilePath = &modelPath.String
			}
			view.Model = m
		}
		posts = append(posts, &view)
	}
	return posts, rows.Err()
}

// CreatePost inserts a post with zeroed counters
func (s *PostgresStore) CreatePost(ctx context.Context, post *models.CommunityPost) error {
	post.Likes = 0
	post.Comments = 0
	return s.db.QueryRowContext(ctx, `
		INSERT INTO community_posts (user_id, content, model_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, post.UserID, post.Content, post.ModelID).Scan(&post.ID, &post.CreatedAt)
}

// UpdatePost merges the patch into a post
func (s *PostgresStore) UpdatePost(ctx context.Context, id int64, patch models.PostPatch) (*models.CommunityPost, error) {
	var sets []string
	var args []interface{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Content != nil {
		add("content", *patch.Content)
	}
	if patch.Likes != nil {
		add("likes", *patch.Likes)
	}
	if patch.Comments != nil {
		add("comments", *patch.Comments)
	}

	var query string
	if len(sets) == 0 {
		args = append(args, id)
		query = `SELECT id, user_id, content, model_id, likes, comments, created_at FROM community_posts WHERE id = $1`
	} else {
		args = append(args, id)
		query = fmt.Sprintf(`UPDATE community_posts SET %s WHERE id = $%d
			RETURNING id, user_id, content, model_id, likes, comments, created_at`, strings.Join(sets, ", "), len(args))
	}

	var p models.CommunityPost
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&p.ID, &p.UserID, &p.Content, &p.ModelID, &p.Likes, &p.Comments, &p.CreatedAt)
	if err != nil {
		return nil, notFound(err, "post", id)
	}
	return &p, nil
}
