package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/app/models/dto"
	"github.com/yigit/lingoschool/internal/db"
	"github.com/yigit/lingoschool/internal/pkg/apperrors"
	"github.com/yigit/lingoschool/internal/pkg/auth"
	"github.com/yigit/lingoschool/internal/pkg/helpers"
)

// UserService manages portal accounts other than students
type UserService struct {
	users  UserStore
	tokens TokenStore
	tx     db.Transactor
	logger zerolog.Logger
}

// NewUserService creates a new UserService
func NewUserService(users UserStore, tokens TokenStore, tx db.Transactor, logger zerolog.Logger) *UserService {
	return &UserService{users: users, tokens: tokens, tx: tx, logger: logger}
}

// CreateUser creates an account together with the profile row of its role
func (s *UserService) CreateUser(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserResponse, error) {
	if req.RoleType == models.RoleStudent || !req.RoleType.IsValid() {
		return nil, apperrors.NewValidationError("students are enrolled through the student registration endpoint")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Email:     NormalizeEmail(req.Email),
		Password:  hash,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Phone:     req.Phone,
		RoleType:  req.RoleType,
		IsActive:  true,
	}

	resp := &dto.UserResponse{}
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, user); err != nil {
			return err
		}
		*resp = dto.NewUserResponse(user)

		switch user.RoleType {
		case models.RoleTeacher:
			t := &models.Teacher{UserID: user.ID, Bio: req.Bio, Languages: req.Languages, IsActive: true}
			if err := s.users.CreateTeacher(ctx, t); err != nil {
				return err
			}
			resp.Teacher = t
		case models.RoleStaff:
			st := &models.Staff{UserID: user.ID, Position: req.Position}
			if err := s.users.CreateStaff(ctx, st); err != nil {
				return err
			}
			resp.Staff = st
		case models.RoleAdmin:
			if err := s.users.CreateAdmin(ctx, &models.Admin{UserID: user.ID}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("userID", user.ID).Str("role", string(user.RoleType)).Msg("User created")
	return resp, nil
}

// GetUser returns a user with its teacher or staff profile
func (s *UserService) GetUser(ctx context.Context, id int64) (*dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := dto.NewUserResponse(user)
	if err := s.attachProfile(ctx, user, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *UserService) attachProfile(ctx context.Context, user *models.User, resp *dto.UserResponse) error {
	switch user.RoleType {
	case models.RoleTeacher:
		t, err := s.users.GetTeacherByUserID(ctx, user.ID)
		if err != nil && !errors.Is(err, apperrors.ErrTeacherNotFound) {
			return err
		}
		if t != nil {
			t.User = nil
		}
		resp.Teacher = t
	case models.RoleStaff:
		st, err := s.users.GetStaffByUserID(ctx, user.ID)
		if err != nil && !errors.Is(err, apperrors.ErrStaffNotFound) {
			return err
		}
		resp.Staff = st
	}
	return nil
}

// ListUsers returns a page of users
func (s *UserService) ListUsers(ctx context.Context, filter dto.UserFilter, page, size int) (*dto.PaginatedResponse, error) {
	pg := helpers.NewPage(page, size)
	users, total, err := s.users.List(ctx, filter, pg.Offset(), pg.Size)
	if err != nil {
		return nil, err
	}

	items := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		items = append(items, dto.NewUserResponse(u))
	}
	return &dto.PaginatedResponse{
		Items:      items,
		Pagination: pg.Info(total),
	}, nil
}

// UpdateUser changes account fields and the role profile. Deactivating an
// account or setting its password revokes its refresh tokens.
func (s *UserService) UpdateUser(ctx context.Context, id int64, req *dto.UpdateUserRequest) (*dto.UserResponse, error) {
	var resp dto.UserResponse
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			return err
		}

		revoke := false
		if req.FirstName != nil {
			user.FirstName = strings.TrimSpace(*req.FirstName)
		}
		if req.LastName != nil {
			user.LastName = strings.TrimSpace(*req.LastName)
		}
		if req.Phone != nil {
			user.Phone = req.Phone
		}
		if req.IsActive != nil {
			revoke = user.IsActive && !*req.IsActive
			user.IsActive = *req.IsActive
		}
		if err := s.users.Update(ctx, user); err != nil {
			return err
		}
		if req.Password != nil {
			hash, err := auth.HashPassword(*req.Password)
			if err != nil {
				return fmt.Errorf("error hashing password: %w", err)
			}
			if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
				return err
			}
			revoke = true
		}

		switch user.RoleType {
		case models.RoleTeacher:
			t, err := s.users.GetTeacherByUserID(ctx, user.ID)
			if err != nil {
				return err
			}
			if req.Bio != nil {
				t.Bio = *req.Bio
			}
			if req.Languages != nil {
				t.Languages = req.Languages
			}
			if req.IsActive != nil {
				t.IsActive = *req.IsActive
			}
			if err := s.users.UpdateTeacher(ctx, t); err != nil {
				return err
			}
		case models.RoleStaff:
			if req.Position != nil {
				st, err := s.users.GetStaffByUserID(ctx, user.ID)
				if err != nil {
					return err
				}
				st.Position = *req.Position
				if err := s.users.UpdateStaff(ctx, st); err != nil {
					return err
				}
			}
		}

		if revoke {
			if err := s.tokens.RevokeAllUserTokens(ctx, user.ID); err != nil {
				return err
			}
		}

		resp = dto.NewUserResponse(user)
		return s.attachProfile(ctx, user, &resp)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteUser removes an account. Admins cannot delete themselves.
func (s *UserService) DeleteUser(ctx context.Context, id, actingUserID int64) error {
	if id == actingUserID {
		return apperrors.NewValidationError("you cannot delete your own account")
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("userID", id).Int64("deletedBy", actingUserID).Msg("User deleted")
	return nil
}

// ListTeachers returns the active teachers for booking forms
func (s *UserService) ListTeachers(ctx context.Context) ([]dto.TeacherSummary, error) {
	teachers, err := s.users.ListTeachers(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make([]dto.TeacherSummary, 0, len(teachers))
	for _, t := range teachers {
		sum := dto.TeacherSummary{ID: t.ID, UserID: t.UserID, Bio: t.Bio, Languages: t.Languages}
		if t.User != nil {
			sum.Name = t.User.FullName()
		}
		if sum.Languages == nil {
			sum.Languages = []string{}
		}
		out = append(out, sum)
	}
	return out, nil
}
